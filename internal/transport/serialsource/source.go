// Package serialsource feeds the dispatcher straight from sensor firmware over a serial port
package serialsource

import (
	"context"
	"errors"
	"sync"
	"time"

	"sleepywoodpecker/waveview/internal/ingest"
	"sleepywoodpecker/waveview/internal/processing"
	rserial "sleepywoodpecker/waveview/internal/rSerial"
	"sleepywoodpecker/waveview/internal/view"

	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("[serialsource] port not open")

const BATCH_QUEUE_LENGTH = 4

type Options struct {
	PortName     string
	BaudRate     int
	EmitInterval time.Duration
	ReopenDelay  time.Duration

	// MaxPoints bounds the reported buffer size, matching the dashboard window
	MaxPoints int
}

type Opener func(portName string, baudrate int) (rserial.Port, error)

type Source struct {
	opts   Options
	open   Opener
	events chan<- ingest.Event
	logger *zap.Logger

	// guards processor and the events channel against RequestStats after shutdown
	mutex     sync.Mutex
	processor *processing.Processor
	closed    bool
}

func NewSource(opts Options, events chan<- ingest.Event, logger *zap.Logger) *Source {
	return NewSourceWithOpener(opts, rserial.Open, events, logger)
}

func NewSourceWithOpener(opts Options, open Opener, events chan<- ingest.Event, logger *zap.Logger) *Source {
	if opts.EmitInterval <= 0 {
		opts.EmitInterval = 50 * time.Millisecond
	}
	if opts.ReopenDelay <= 0 {
		opts.ReopenDelay = time.Second
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = processing.DefaultMaxPoints
	}

	return &Source{
		opts:   opts,
		open:   open,
		events: events,
		logger: logger,
	}
}

// Run reopens the port after failures until ctx is cancelled, then closes the event channel
func (s *Source) Run(ctx context.Context) error {
	defer func() {
		s.mutex.Lock()
		s.closed = true
		close(s.events)
		s.mutex.Unlock()
	}()

	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		s.logger.Warn("[serialsource] serial session ended, reopening",
			zap.Error(err),
			zap.String("portName", s.opts.PortName),
			zap.Duration("delay", s.opts.ReopenDelay),
		)

		select {
		case <-time.After(s.opts.ReopenDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Source) session(ctx context.Context) error {
	port, err := s.open(s.opts.PortName, s.opts.BaudRate)
	if err != nil {
		return err
	}
	defer port.Close()

	messageQueue := make(chan []byte, processing.DEFAULT_QUEUE_SIZE)
	batches := make(chan processing.Batch, BATCH_QUEUE_LENGTH)

	reader := rserial.NewRSerial(port, s.opts.PortName, messageQueue, s.logger, processing.RawPacketSize, processing.StopSequence[:])
	processor := processing.NewProcessor(messageQueue, batches, s.opts.EmitInterval, s.logger)
	s.setProcessor(processor)
	defer s.setProcessor(nil)

	s.logger.Info("[serialsource] port open", zap.String("portName", s.opts.PortName), zap.Int("baudrate", s.opts.BaudRate))
	s.emit(ctx, ingest.ConnectionChanged{Connected: true})
	// firmware keeps no history, a new session starts from an empty window
	s.emit(ctx, ingest.InitialSnapshot{})
	defer s.emit(ctx, ingest.ConnectionChanged{Connected: false})

	readErr := make(chan error, 1)
	go func() {
		readErr <- reader.Run(ctx)
	}()
	go processor.Run(ctx)

	for batch := range batches {
		pulseCount := batch.PulseCount
		s.emit(ctx, ingest.SensorUpdate{Payload: ingest.Payload{
			Raw:        batch.Raw,
			Envelope:   batch.Envelope,
			Time:       batch.Time,
			Threshold:  batch.Threshold,
			Baseline:   batch.Baseline,
			PulseCount: &pulseCount,
		}})
	}

	return <-readErr
}

func (s *Source) setProcessor(p *processing.Processor) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.processor = p
}

func (s *Source) emit(ctx context.Context, ev ingest.Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// RequestStats is answered locally from the processor counters. It runs on the dispatcher
// goroutine, so the reply is dropped rather than blocking when the event queue is full.
func (s *Source) RequestStats() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.processor == nil || s.closed {
		return ErrNotConnected
	}

	stats := s.processor.Stats()
	reply := ingest.StatsReply{Stats: view.UpstreamStats{
		SampleCount:    stats.SampleCount,
		BufferSize:     min(stats.SampleCount, s.opts.MaxPoints),
		Baseline:       stats.Baseline,
		Envelope:       stats.Envelope,
		DroppedPackets: stats.DroppedPackets,
	}}

	select {
	case s.events <- reply:
	default:
		s.logger.Debug("[serialsource] event queue full, dropping stats reply")
	}
	return nil
}
