package processing

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

const SamplingChannelName = "waveview"

// Snapshot is the dashboard state handed to the sampler on every heartbeat
type Snapshot struct {
	BufferSize   int
	TotalSamples int
	Baseline     float64
	Envelope     float64
	Threshold    float64
	Connected    bool
	Paused       bool
}

type Sampler struct {
	measurement string
	out         io.Writer
	logger      *zap.Logger
	now         func() time.Time
}

// NewSampler writes influx lines to out, usually a UDP connection to telegraf
func NewSampler(measurement string, out io.Writer, logger *zap.Logger) *Sampler {
	if measurement == "" {
		measurement = SamplingChannelName
	}

	return &Sampler{
		measurement: measurement,
		out:         out,
		logger:      logger,
		now:         time.Now,
	}
}

func FormatInflux(measurement string, snap Snapshot, at time.Time) string {
	var sb strings.Builder
	sb.WriteString(measurement)
	sb.WriteByte(' ')
	fmt.Fprintf(&sb, "buffer=%di,samples=%di,baseline=%.2f,envelope=%.2f,threshold=%.2f,connected=%t,paused=%t",
		snap.BufferSize,
		snap.TotalSamples,
		snap.Baseline,
		snap.Envelope,
		snap.Threshold,
		snap.Connected,
		snap.Paused,
	)
	fmt.Fprintf(&sb, " %d", at.UnixNano())

	return sb.String()
}

func (s *Sampler) SampleAndLog(snap Snapshot) {
	influxString := FormatInflux(s.measurement, snap, s.now())

	if err := s.send(influxString); err != nil {
		s.logger.Warn("[sampler] error writing data to UDP connection", zap.Error(err))
	} else {
		s.logger.Debug("[sampler] collected sample", zap.String("influxString", influxString))
	}
}

func (s *Sampler) send(formattedData string) error {
	data := []byte(formattedData)
	totalWritten := 0
	for totalWritten < len(data) {
		n, err := s.out.Write(data[totalWritten:])
		if err != nil {
			return err
		}
		totalWritten += n
	}

	return nil
}
