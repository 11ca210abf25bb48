package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	rawColor       = drawing.ColorFromHex("3498db")
	envelopeColor  = drawing.ColorFromHex("e74c3c")
	thresholdColor = drawing.ColorFromHex("f39c12")
)

type PNGChartOptions struct {
	Path   string
	Width  int
	Height int
	YMin   float64
	YMax   float64
}

// PNGChart renders the waveform into a PNG file that is swapped in atomically on every redraw
type PNGChart struct {
	opts PNGChartOptions

	labels    []float64
	raw       []float64
	envelope  []float64
	threshold []float64
}

func NewPNGChart(opts PNGChartOptions) *PNGChart {
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 400
	}
	if opts.YMax <= opts.YMin {
		opts.YMin, opts.YMax = 0, 1023
	}
	return &PNGChart{opts: opts}
}

func (c *PNGChart) Replace(labels, raw, envelope, threshold []float64) {
	c.labels = append(c.labels[:0], labels...)
	c.raw = append(c.raw[:0], raw...)
	c.envelope = append(c.envelope[:0], envelope...)
	c.threshold = append(c.threshold[:0], threshold...)
}

// Redraw ignores animate, a file has nothing to animate
func (c *PNGChart) Redraw(animate bool) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return err
	}
	return writeAtomic(c.opts.Path, buf.Bytes())
}

// Encode renders the current series as PNG
func (c *PNGChart) Encode(buf *bytes.Buffer) error {
	// go-chart cannot compute a range from fewer than two distinct x values
	if len(c.labels) < 2 || c.labels[0] == c.labels[len(c.labels)-1] {
		return png.Encode(buf, blank(c.opts.Width, c.opts.Height))
	}

	ch := chart.Chart{
		Width:      c.opts.Width,
		Height:     c.opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name: "Time (seconds)",
		},
		YAxis: chart.YAxis{
			Name:  fmt.Sprintf("ADC Counts (%.0f-%.0f)", c.opts.YMin, c.opts.YMax),
			Range: &chart.ContinuousRange{Min: c.opts.YMin, Max: c.opts.YMax},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Raw Signal",
				XValues: c.labels,
				YValues: c.raw,
				Style:   chart.Style{StrokeColor: rawColor, StrokeWidth: 1.5},
			},
			chart.ContinuousSeries{
				Name:    "Envelope",
				XValues: c.labels,
				YValues: c.envelope,
				Style:   chart.Style{StrokeColor: envelopeColor, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "Threshold",
				XValues: c.labels,
				YValues: c.threshold,
				Style:   chart.Style{StrokeColor: thresholdColor, StrokeWidth: 2, StrokeDashArray: []float64{10, 5}},
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, buf); err != nil {
		return fmt.Errorf("[render] rendering waveform: %w", err)
	}
	return nil
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".waveform-*.png")
	if err != nil {
		return fmt.Errorf("[render] creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[render] writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
