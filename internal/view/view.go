// Package view holds the pure projections from dashboard state to displayed text
package view

import (
	"fmt"
	"strconv"
)

// Stats are the formatted values shown in the baseline, envelope and threshold slots
type Stats struct {
	Baseline  string
	Envelope  string
	Threshold string
}

func FormatStats(baseline, envelope, threshold float64) Stats {
	return Stats{
		Baseline:  strconv.FormatFloat(baseline, 'f', 1, 64),
		Envelope:  strconv.FormatFloat(envelope, 'f', 1, 64),
		Threshold: strconv.FormatFloat(threshold, 'f', 0, 64),
	}
}

// Counters fills the buffer size, sample count and pulse count slots.
// PulseCount is empty when the source never reported one.
type Counters struct {
	BufferSize  string
	SampleCount string
	PulseCount  string
}

func FormatCounters(bufferSize, sampleCount int, pulseCount *int) Counters {
	c := Counters{
		BufferSize:  strconv.Itoa(bufferSize),
		SampleCount: strconv.Itoa(sampleCount),
	}
	if pulseCount != nil {
		c.PulseCount = strconv.Itoa(*pulseCount)
	}
	return c
}

type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

// Indicator is the visual state of the connection status element
type Indicator struct {
	State ConnectionState
	Label string
	Color string
}

func Indicate(connected bool) Indicator {
	if connected {
		return Indicator{State: StateConnected, Label: "Connected", Color: "#27ae60"}
	}
	return Indicator{State: StateDisconnected, Label: "Disconnected", Color: "#e74c3c"}
}

// UpstreamStats is the answer to a stats request as reported by the source
type UpstreamStats struct {
	SampleCount int
	BufferSize  int
	Baseline    float64
	Envelope    float64

	// DroppedPackets is only reported by sources that number their packets
	DroppedPackets int
}

func (u UpstreamStats) String() string {
	s := fmt.Sprintf("samples=%d buffer=%d baseline=%.1f envelope=%.1f", u.SampleCount, u.BufferSize, u.Baseline, u.Envelope)
	if u.DroppedPackets > 0 {
		s += fmt.Sprintf(" dropped=%d", u.DroppedPackets)
	}
	return s
}

// Surface is the set of display slots and indicators the dispatcher writes into
type Surface interface {
	SetStats(Stats)
	SetCounters(Counters)
	SetConnection(Indicator)
	SetPaused(bool)
	SetUpstream(UpstreamStats)
}
