package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceSocketIO = "socketio"
	SourceSerial   = "serial"
)

// Config holds the dashboard configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Buffer    BufferConfig    `yaml:"buffer"`
	Heartbeat Duration        `yaml:"heartbeat"`
	Chart     ChartConfig     `yaml:"chart"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
	UI        UIConfig        `yaml:"ui"`
}

// SourceConfig selects where samples come from.
type SourceConfig struct {
	Kind      string          `yaml:"kind"` // "socketio", "serial"
	URL       string          `yaml:"url"`
	Serial    SerialConfig    `yaml:"serial"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// SerialConfig holds settings for firmware attached over a serial port.
type SerialConfig struct {
	Port         string   `yaml:"port"`
	BaudRate     int      `yaml:"baud"`
	EmitInterval Duration `yaml:"emit_interval"`
}

// ReconnectConfig holds exponential backoff settings.
type ReconnectConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

type BufferConfig struct {
	MaxPoints int `yaml:"max_points"`
}

// ChartConfig holds settings for the PNG waveform chart.
type ChartConfig struct {
	Path   string  `yaml:"path"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	ADCMin float64 `yaml:"adc_min"`
	ADCMax float64 `yaml:"adc_max"`
}

// TelemetryConfig holds settings for the influx line exporter.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	Measurement string `yaml:"measurement"`
}

type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

type UIConfig struct {
	Headless bool `yaml:"headless"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Kind: SourceSocketIO,
			URL:  "http://127.0.0.1:5000",
			Serial: SerialConfig{
				Port:         "/dev/ttyUSB0",
				BaudRate:     115200,
				EmitInterval: Duration(50 * time.Millisecond),
			},
			Reconnect: ReconnectConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Buffer: BufferConfig{
			MaxPoints: 4000,
		},
		Heartbeat: Duration(5 * time.Second),
		Chart: ChartConfig{
			Path:   "waveform.png",
			Width:  1200,
			Height: 400,
			ADCMin: 0,
			ADCMax: 1023,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Addr:        "127.0.0.1:4020",
			Measurement: "waveview",
		},
		Log: LogConfig{
			Path:  "waveview.logs",
			Level: "info",
		},
	}
}

// Load reads the configuration at path, writing defaults first if the file does not exist.
// A .env file next to the config is loaded before environment overrides are applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WAVEVIEW_SOURCE"); v != "" {
		c.Source.Kind = v
	}
	if v := os.Getenv("WAVEVIEW_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv("WAVEVIEW_SERIAL_PORT"); v != "" {
		c.Source.Serial.Port = v
	}
	if v := os.Getenv("WAVEVIEW_CHART_PATH"); v != "" {
		c.Chart.Path = v
	}
}

func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceSocketIO:
		if c.Source.URL == "" {
			return errors.New("source.url is required for the socketio source")
		}
	case SourceSerial:
		if c.Source.Serial.Port == "" {
			return errors.New("source.serial.port is required for the serial source")
		}
		if c.Source.Serial.BaudRate <= 0 {
			return fmt.Errorf("invalid source.serial.baud %d", c.Source.Serial.BaudRate)
		}
	default:
		return fmt.Errorf("invalid source.kind '%s': must be '%s' or '%s'", c.Source.Kind, SourceSocketIO, SourceSerial)
	}

	if c.Buffer.MaxPoints <= 0 {
		return fmt.Errorf("invalid buffer.max_points %d", c.Buffer.MaxPoints)
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("invalid heartbeat %s", c.Heartbeat)
	}
	if c.Chart.ADCMax <= c.Chart.ADCMin {
		return fmt.Errorf("chart.adc_max (%.0f) must exceed chart.adc_min (%.0f)", c.Chart.ADCMax, c.Chart.ADCMin)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# waveview configuration
# source.kind: socketio (Flask-SocketIO server) or serial (firmware packets)
# Durations: ns, us, ms, s, m, h

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Save(path, DefaultConfig())
}
