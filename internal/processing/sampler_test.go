package processing

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFormatInflux(t *testing.T) {
	snap := Snapshot{
		BufferSize:   4000,
		TotalSamples: 12345,
		Baseline:     40.25,
		Envelope:     3.5,
		Threshold:    60,
		Connected:    true,
	}
	at := time.Unix(10, 5)

	got := FormatInflux("waveview", snap, at)
	assert.Equal(t, "waveview buffer=4000i,samples=12345i,baseline=40.25,envelope=3.50,threshold=60.00,connected=true,paused=false 10000000005", got)
}

// shortWriter accepts at most n bytes per call
type shortWriter struct {
	bytes.Buffer
	n int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		p = p[:w.n]
	}
	return w.Buffer.Write(p)
}

func TestSampler_WritesWholeLine(t *testing.T) {
	out := &shortWriter{n: 7}
	s := NewSampler("", out, zap.NewNop())
	s.now = func() time.Time { return time.Unix(1, 0) }

	s.SampleAndLog(Snapshot{BufferSize: 1})

	assert.Equal(t, FormatInflux(SamplingChannelName, Snapshot{BufferSize: 1}, time.Unix(1, 0)), out.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("connection refused")
}

func TestSampler_WriteErrorIsNotFatal(t *testing.T) {
	s := NewSampler("m", failingWriter{}, zap.NewNop())
	assert.NotPanics(t, func() { s.SampleAndLog(Snapshot{}) })
}
