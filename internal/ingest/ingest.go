package ingest

import (
	"context"
	"time"

	"sleepywoodpecker/waveview/internal/processing"
	"sleepywoodpecker/waveview/internal/view"

	"go.uber.org/zap"
)

const DefaultHeartbeat = 5 * time.Second

type Renderer interface {
	Render(buffer *processing.SampleBuffer, threshold float64)
}

type Telemetry interface {
	SampleAndLog(snap processing.Snapshot)
}

// Ingest is the single owner of the sample buffer, the pause flag and the lifetime sample counter.
// Every handler runs to completion on the Run goroutine, so none of that state is locked.
type Ingest struct {
	buffer    *processing.SampleBuffer
	renderer  Renderer
	surface   view.Surface
	requester StatsRequester
	telemetry Telemetry
	logger    *zap.Logger
	heartbeat time.Duration

	connected    bool
	paused       bool
	totalSamples int
	threshold    float64
	baseline     float64
	envelope     float64
	pulseCount   *int
}

func New(buffer *processing.SampleBuffer, renderer Renderer, surface view.Surface, requester StatsRequester, heartbeat time.Duration, logger *zap.Logger) *Ingest {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	return &Ingest{
		buffer:    buffer,
		renderer:  renderer,
		surface:   surface,
		requester: requester,
		logger:    logger,
		heartbeat: heartbeat,
	}
}

// SetTelemetry attaches a sampler that receives a snapshot on every heartbeat
func (i *Ingest) SetTelemetry(t Telemetry) {
	i.telemetry = t
}

// Run dispatches transport events, user actions and heartbeats until ctx is cancelled
func (i *Ingest) Run(ctx context.Context, events <-chan Event, actions <-chan Action) error {
	ticker := time.NewTicker(i.heartbeat)
	defer ticker.Stop()

	i.surface.SetConnection(view.Indicate(i.connected))
	i.surface.SetPaused(i.paused)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				i.logger.Info("[ingest] event stream closed")
				events = nil
				continue
			}
			i.Handle(ev)
		case a, ok := <-actions:
			if !ok {
				actions = nil
				continue
			}
			i.HandleAction(a)
		case <-ticker.C:
			i.Heartbeat()
		case <-ctx.Done():
			i.logger.Info("[ingest] received shutdown signal", zap.Int("totalSamples", i.totalSamples))
			return nil
		}
	}
}

func (i *Ingest) Handle(ev Event) {
	switch e := ev.(type) {
	case ConnectionChanged:
		i.onConnectionChanged(e.Connected)
	case InitialSnapshot:
		i.onInitialSnapshot(e.Payload)
	case SensorUpdate:
		i.onSensorUpdate(e.Payload)
	case StatsReply:
		i.surface.SetUpstream(e.Stats)
	default:
		i.logger.Warn("[ingest] unknown event", zap.Any("event", ev))
	}
}

func (i *Ingest) onConnectionChanged(connected bool) {
	if connected == i.connected {
		return
	}
	i.connected = connected

	if connected {
		i.logger.Info("[ingest] connected to source")
	} else {
		i.logger.Warn("[ingest] disconnected from source")
	}
	i.surface.SetConnection(view.Indicate(connected))
}

func (i *Ingest) onInitialSnapshot(p Payload) {
	if err := i.buffer.Replace(p.Time, p.Raw, p.Envelope); err != nil {
		i.logger.Error("[ingest] rejecting initial snapshot", zap.Error(err))
		return
	}

	i.totalSamples = i.buffer.Len()
	i.latch(p)
	i.logger.Info("[ingest] received initial data", zap.Int("samples", i.buffer.Len()))

	if !i.paused {
		i.renderer.Render(i.buffer, i.threshold)
	}
	i.refresh()
}

func (i *Ingest) onSensorUpdate(p Payload) {
	if len(p.Raw) == 0 {
		return
	}

	// the buffer keeps accumulating while paused, only the repaint is skipped
	if err := i.buffer.Append(p.Time, p.Raw, p.Envelope); err != nil {
		i.logger.Error("[ingest] rejecting sensor update", zap.Error(err))
		return
	}

	i.totalSamples += len(p.Raw)
	i.latch(p)

	if !i.paused {
		i.renderer.Render(i.buffer, i.threshold)
	}
	i.refresh()
}

func (i *Ingest) latch(p Payload) {
	i.threshold = p.Threshold
	i.baseline = p.Baseline
	i.envelope = p.lastEnvelope()
	if p.PulseCount != nil {
		count := *p.PulseCount
		i.pulseCount = &count
	}
}

func (i *Ingest) refresh() {
	i.surface.SetStats(view.FormatStats(i.baseline, i.envelope, i.threshold))
	i.surface.SetCounters(view.FormatCounters(i.buffer.Len(), i.totalSamples, i.pulseCount))
}

func (i *Ingest) HandleAction(a Action) {
	i.logger.Debug("[ingest] user action", zap.Stringer("action", a))

	switch a {
	case TogglePause:
		i.paused = !i.paused
		i.surface.SetPaused(i.paused)
	case Clear:
		i.buffer.Clear()
		i.totalSamples = 0
		i.renderer.Render(i.buffer, i.threshold)
		i.surface.SetCounters(view.FormatCounters(0, 0, i.pulseCount))
	default:
		i.logger.Warn("[ingest] unknown action", zap.Int("action", int(a)))
	}
}

// Heartbeat asks the source for stats and feeds telemetry, no reply is awaited
func (i *Ingest) Heartbeat() {
	if err := i.requester.RequestStats(); err != nil {
		i.logger.Debug("[ingest] stats request not sent", zap.Error(err))
	}

	if i.telemetry != nil {
		i.telemetry.SampleAndLog(i.Snapshot())
	}
}

func (i *Ingest) Snapshot() processing.Snapshot {
	return processing.Snapshot{
		BufferSize:   i.buffer.Len(),
		TotalSamples: i.totalSamples,
		Baseline:     i.baseline,
		Envelope:     i.envelope,
		Threshold:    i.threshold,
		Connected:    i.connected,
		Paused:       i.paused,
	}
}

func (i *Ingest) Paused() bool {
	return i.paused
}

func (i *Ingest) Connected() bool {
	return i.connected
}

func (i *Ingest) TotalSamples() int {
	return i.totalSamples
}
