package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNGChart_RedrawWritesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waveform.png")
	c := NewPNGChart(PNGChartOptions{Path: path, Width: 640, Height: 240})

	labels := []float64{0, 0.00125, 0.0025, 0.00375}
	c.Replace(labels, []float64{40, 300, 700, 41}, []float64{0, 30, 90, 80}, []float64{60, 60, 60, 60})
	require.NoError(t, c.Redraw(false))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestPNGChart_EmptyRendersBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waveform.png")
	c := NewPNGChart(PNGChartOptions{Path: path})

	c.Replace(nil, nil, nil, nil)
	require.NoError(t, c.Redraw(false))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())

	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})
}

func TestPNGChart_SingleInstantRendersBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waveform.png")
	c := NewPNGChart(PNGChartOptions{Path: path, Width: 320, Height: 120})

	c.Replace([]float64{2.5, 2.5, 2.5}, []float64{40, 41, 42}, []float64{0, 0, 0}, []float64{60, 60, 60})
	require.NoError(t, c.Redraw(false))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())

	r, g, b, _ := img.At(5, 5).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})
}

func TestPNGChart_ReplaceCopies(t *testing.T) {
	c := NewPNGChart(PNGChartOptions{})
	raw := []float64{1, 2}
	c.Replace([]float64{0, 1}, raw, []float64{0, 0}, []float64{5, 5})

	raw[0] = 99
	assert.Equal(t, []float64{1, 2}, c.raw)
	assert.Equal(t, 0.0, c.opts.YMin)
	assert.Equal(t, 1023.0, c.opts.YMax)
}
