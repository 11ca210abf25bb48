package processing

import (
	"errors"
	"fmt"
)

// 4000 points is 5 seconds of signal at 800 Hz
const DefaultMaxPoints = 4000

var ErrLengthMismatch = errors.New("[buffer] time, raw and envelope sequences differ in length")

// Sample is one aligned (time, raw, envelope) triple
type Sample struct {
	Time     float64
	Raw      int
	Envelope float64
}

// SampleBuffer keeps a sliding window over the most recent samples as three parallel
// sequences. It has exactly one owner and is not safe for concurrent use.
type SampleBuffer struct {
	time      []float64
	raw       []int
	envelope  []float64
	maxPoints int
}

func NewSampleBuffer(maxPoints int) *SampleBuffer {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}

	return &SampleBuffer{
		time:      make([]float64, 0, maxPoints),
		raw:       make([]int, 0, maxPoints),
		envelope:  make([]float64, 0, maxPoints),
		maxPoints: maxPoints,
	}
}

func checkAligned(time []float64, raw []int, envelope []float64) error {
	if len(time) != len(raw) || len(raw) != len(envelope) {
		return fmt.Errorf("%w: time=%d raw=%d envelope=%d", ErrLengthMismatch, len(time), len(raw), len(envelope))
	}
	return nil
}

// Replace installs a snapshot in place of the current contents
func (b *SampleBuffer) Replace(time []float64, raw []int, envelope []float64) error {
	if err := checkAligned(time, raw, envelope); err != nil {
		return err
	}

	b.time = append(b.time[:0], time...)
	b.raw = append(b.raw[:0], raw...)
	b.envelope = append(b.envelope[:0], envelope...)
	b.truncate()

	return nil
}

func (b *SampleBuffer) Append(time []float64, raw []int, envelope []float64) error {
	if err := checkAligned(time, raw, envelope); err != nil {
		return err
	}

	b.time = append(b.time, time...)
	b.raw = append(b.raw, raw...)
	b.envelope = append(b.envelope, envelope...)
	b.truncate()

	return nil
}

// truncate drops the same number of entries from the front of all three sequences.
// The survivors are shifted down so the backing arrays don't grow without bound.
func (b *SampleBuffer) truncate() {
	excess := len(b.time) - b.maxPoints
	if excess <= 0 {
		return
	}

	b.time = b.time[:copy(b.time, b.time[excess:])]
	b.raw = b.raw[:copy(b.raw, b.raw[excess:])]
	b.envelope = b.envelope[:copy(b.envelope, b.envelope[excess:])]
}

func (b *SampleBuffer) Clear() {
	b.time = b.time[:0]
	b.raw = b.raw[:0]
	b.envelope = b.envelope[:0]
}

func (b *SampleBuffer) Len() int {
	return len(b.time)
}

func (b *SampleBuffer) MaxPoints() int {
	return b.maxPoints
}

// Last returns the newest triple, or false when the buffer is empty
func (b *SampleBuffer) Last() (Sample, bool) {
	n := len(b.time)
	if n == 0 {
		return Sample{}, false
	}

	return Sample{
		Time:     b.time[n-1],
		Raw:      b.raw[n-1],
		Envelope: b.envelope[n-1],
	}, true
}

// The accessors below hand out the live slices. They are only valid until the next mutation.

func (b *SampleBuffer) Times() []float64 {
	return b.time
}

func (b *SampleBuffer) Raw() []int {
	return b.raw
}

func (b *SampleBuffer) Envelope() []float64 {
	return b.envelope
}
