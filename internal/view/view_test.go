package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFormatStats(t *testing.T) {
	tests := []struct {
		baseline, envelope, threshold float64
		expected                      Stats
	}{
		{40, 0, 60, Stats{"40.0", "0.0", "60"}},
		{39.96, 123.44, 59.6, Stats{"40.0", "123.4", "60"}},
		{0, 0, 0, Stats{"0.0", "0.0", "0"}},
	}

	for _, tt := range tests {
		got := FormatStats(tt.baseline, tt.envelope, tt.threshold)
		if got != tt.expected {
			t.Errorf("FormatStats(%v, %v, %v) = %+v, want %+v", tt.baseline, tt.envelope, tt.threshold, got, tt.expected)
		}
	}
}

func TestFormatCounters(t *testing.T) {
	assert.Equal(t, Counters{BufferSize: "4000", SampleCount: "12000"}, FormatCounters(4000, 12000, nil))

	pulses := 7
	assert.Equal(t, Counters{BufferSize: "0", SampleCount: "0", PulseCount: "7"}, FormatCounters(0, 0, &pulses))
}

func TestIndicate(t *testing.T) {
	on := Indicate(true)
	off := Indicate(false)

	assert.Equal(t, StateConnected, on.State)
	assert.Equal(t, "Connected", on.Label)
	assert.Equal(t, StateDisconnected, off.State)
	assert.Equal(t, "Disconnected", off.Label)
	assert.NotEqual(t, on.Color, off.Color)
}

func TestLogSurface_ImplementsSurface(t *testing.T) {
	var s Surface = NewLogSurface(zap.NewNop())
	assert.NotPanics(t, func() {
		s.SetStats(FormatStats(1, 2, 3))
		s.SetCounters(FormatCounters(1, 2, nil))
		s.SetConnection(Indicate(true))
		s.SetPaused(true)
		s.SetUpstream(UpstreamStats{SampleCount: 1})
	})
}

func TestUpstreamStats_String(t *testing.T) {
	u := UpstreamStats{SampleCount: 9100, BufferSize: 4000, Baseline: 40.3, Envelope: 3}
	assert.Equal(t, "samples=9100 buffer=4000 baseline=40.3 envelope=3.0", u.String())

	u.DroppedPackets = 4
	assert.Equal(t, "samples=9100 buffer=4000 baseline=40.3 envelope=3.0 dropped=4", u.String())
}
