package render

import (
	"sleepywoodpecker/waveview/internal/processing"

	"go.uber.org/zap"
)

// Chart is the charting widget: one numeric label axis and three equal-length series
type Chart interface {
	Replace(labels, raw, envelope, threshold []float64)
	// Redraw repaints the widget, animate=false asks for an immediate repaint
	Redraw(animate bool) error
}

type Bridge struct {
	chart  Chart
	logger *zap.Logger

	// reused between renders, the widget must copy what it keeps
	raw       []float64
	threshold []float64
}

func NewBridge(chart Chart, logger *zap.Logger) *Bridge {
	return &Bridge{
		chart:  chart,
		logger: logger,
	}
}

// Render paints the whole buffer with a flat threshold line across the visible time span
func (b *Bridge) Render(buffer *processing.SampleBuffer, threshold float64) {
	n := buffer.Len()

	b.raw = b.raw[:0]
	for _, v := range buffer.Raw() {
		b.raw = append(b.raw, float64(v))
	}

	b.threshold = b.threshold[:0]
	for i := 0; i < n; i++ {
		b.threshold = append(b.threshold, threshold)
	}

	b.chart.Replace(buffer.Times(), b.raw, buffer.Envelope(), b.threshold)
	if err := b.chart.Redraw(false); err != nil {
		b.logger.Warn("[render] chart redraw failed", zap.Error(err), zap.Int("points", n))
	}
}
