package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"sleepywoodpecker/waveview/internal/config"
	"sleepywoodpecker/waveview/internal/ingest"
	"sleepywoodpecker/waveview/internal/logger"
	"sleepywoodpecker/waveview/internal/processing"
	"sleepywoodpecker/waveview/internal/render"
	"sleepywoodpecker/waveview/internal/transport/serialsource"
	"sleepywoodpecker/waveview/internal/transport/socketio"
	"sleepywoodpecker/waveview/internal/tui"
	"sleepywoodpecker/waveview/internal/view"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DEFAULT_CONFIG_PATH = "waveview.yaml"

const EVENT_QUEUE_LENGTH = 64
const ACTION_QUEUE_LENGTH = 8

// source is a transport: it pushes events into the dispatcher and accepts stats requests
type source interface {
	Run(ctx context.Context) error
	ingest.StatsRequester
}

func main() {
	var configPath string
	var headless bool

	root := &cobra.Command{
		Use:   "waveview",
		Short: "Live sensor waveform dashboard",
		Long: `waveview subscribes to a sensor stream (a Socket.IO server or firmware on a
serial port), keeps the most recent samples in a rolling window, repaints the
waveform chart and shows live statistics in the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, headless)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", DEFAULT_CONFIG_PATH, "path to the yaml config file")
	root.Flags().BoolVar(&headless, "headless", false, "log stats instead of drawing the terminal dashboard")

	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.GenerateDefault(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", configPath)
			return nil
		},
	})

	// context handler for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, headlessFlag bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	headless := headlessFlag || cfg.UI.Headless

	// first initialize the main logger, the console only gets logs when the dashboard is not drawn
	log, err := logger.NewLogger(cfg.Log.Path, cfg.Log.Level, headless)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan ingest.Event, EVENT_QUEUE_LENGTH)
	actions := make(chan ingest.Action, ACTION_QUEUE_LENGTH)

	src, err := newSource(cfg, events, log)
	if err != nil {
		return err
	}

	buffer := processing.NewSampleBuffer(cfg.Buffer.MaxPoints)
	chart := render.NewPNGChart(render.PNGChartOptions{
		Path:   cfg.Chart.Path,
		Width:  cfg.Chart.Width,
		Height: cfg.Chart.Height,
		YMin:   cfg.Chart.ADCMin,
		YMax:   cfg.Chart.ADCMax,
	})
	bridge := render.NewBridge(chart, log)

	g, gctx := errgroup.WithContext(ctx)

	var surface view.Surface
	var program *tea.Program
	if headless {
		surface = view.NewLogSurface(log)
	} else {
		program = tea.NewProgram(tui.NewModel(actions), tea.WithAltScreen(), tea.WithContext(gctx))
		surface = tui.NewSurface(program)
	}

	dispatcher := ingest.New(buffer, bridge, surface, src, cfg.Heartbeat.D(), log)

	if cfg.Telemetry.Enabled {
		// initialize UDP connection to telegraf
		udpAddr, err := net.ResolveUDPAddr("udp", cfg.Telemetry.Addr)
		if err != nil {
			return fmt.Errorf("resolving telemetry address: %w", err)
		}
		udpConn, err := net.DialUDP("udp", nil, udpAddr)
		if err != nil {
			return fmt.Errorf("dialing telemetry address: %w", err)
		}
		defer udpConn.Close()

		dispatcher.SetTelemetry(processing.NewSampler(cfg.Telemetry.Measurement, udpConn, log))
	}

	log.Info("starting waveview",
		zap.String("source", cfg.Source.Kind),
		zap.Int("maxPoints", cfg.Buffer.MaxPoints),
		zap.String("chart", cfg.Chart.Path),
		zap.Bool("headless", headless),
	)

	// run everything
	g.Go(func() error {
		return src.Run(gctx)
	})
	g.Go(func() error {
		return dispatcher.Run(gctx, events, actions)
	})
	if program != nil {
		g.Go(func() error {
			_, err := program.Run()
			// quitting the dashboard stops everything else
			cancel()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("waveview stopped with error", zap.Error(err))
		return err
	}
	log.Info("waveview stopped")
	return nil
}

func newSource(cfg *config.Config, events chan<- ingest.Event, log *zap.Logger) (source, error) {
	switch cfg.Source.Kind {
	case config.SourceSocketIO:
		return socketio.NewClient(socketio.Options{
			URL:       cfg.Source.URL,
			BaseDelay: cfg.Source.Reconnect.BaseDelay.D(),
			MaxDelay:  cfg.Source.Reconnect.MaxDelay.D(),
		}, events, log), nil
	case config.SourceSerial:
		return serialsource.NewSource(serialsource.Options{
			PortName:     cfg.Source.Serial.Port,
			BaudRate:     cfg.Source.Serial.BaudRate,
			EmitInterval: cfg.Source.Serial.EmitInterval.D(),
			ReopenDelay:  cfg.Source.Reconnect.BaseDelay.D(),
			MaxPoints:    cfg.Buffer.MaxPoints,
		}, events, log), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
