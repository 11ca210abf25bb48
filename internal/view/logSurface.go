package view

import "go.uber.org/zap"

// LogSurface is the headless surface, every slot update becomes a log line
type LogSurface struct {
	logger *zap.Logger
}

func NewLogSurface(logger *zap.Logger) *LogSurface {
	return &LogSurface{logger: logger}
}

func (s *LogSurface) SetStats(stats Stats) {
	s.logger.Debug("[surface] stats",
		zap.String("baseline", stats.Baseline),
		zap.String("envelope", stats.Envelope),
		zap.String("threshold", stats.Threshold),
	)
}

func (s *LogSurface) SetCounters(c Counters) {
	s.logger.Debug("[surface] counters",
		zap.String("bufferSize", c.BufferSize),
		zap.String("sampleCount", c.SampleCount),
		zap.String("pulseCount", c.PulseCount),
	)
}

func (s *LogSurface) SetConnection(ind Indicator) {
	s.logger.Info("[surface] connection "+ind.Label, zap.String("state", string(ind.State)))
}

func (s *LogSurface) SetPaused(paused bool) {
	s.logger.Info("[surface] pause toggled", zap.Bool("paused", paused))
}

func (s *LogSurface) SetUpstream(u UpstreamStats) {
	s.logger.Info("[surface] upstream stats",
		zap.Int("sampleCount", u.SampleCount),
		zap.Int("bufferSize", u.BufferSize),
		zap.Float64("baseline", u.Baseline),
		zap.Float64("envelope", u.Envelope),
		zap.Int("droppedPackets", u.DroppedPackets),
	)
}
