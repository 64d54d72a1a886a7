package plotting

import (
	"bytes"
	"image/gif"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

func travellingWave(grid []float64, steps int) [][]float64 {
	frames := make([][]float64, steps)
	for t := range frames {
		frames[t] = make([]float64, len(grid))
		for i, lon := range grid {
			frames[t][i] = math.Sin(lon*math.Pi/60 - float64(t))
		}
	}
	return frames
}

func TestPatternAnimation(t *testing.T) {
	grid := regularGrid(4, 6)
	lons := make([]float64, len(grid))
	for i, pt := range grid {
		lons[i] = pt.Lon
	}
	frames := travellingWave(lons, 3)

	f := NewFigure(nil)
	f.Width, f.Height = 6*vg.Centimeter, 4*vg.Centimeter

	var buf bytes.Buffer
	require.NoError(t, f.PatternAnimation(&buf, frames, grid, []string{"a", "b", "c"}, 200*time.Millisecond))

	anim, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	require.Len(t, anim.Image, 3)
	assert.Equal(t, []int{20, 20, 20}, anim.Delay)
	assert.Equal(t, anim.Image[0].Bounds(), anim.Image[2].Bounds())
}

func TestPatternAnimation_Errors(t *testing.T) {
	f := NewFigure(nil)
	grid := regularGrid(3, 3)
	var buf bytes.Buffer

	assert.ErrorIs(t, f.PatternAnimation(&buf, nil, grid, nil, 0), ErrNoData)
	assert.Error(t, f.PatternAnimation(&buf, [][]float64{make([]float64, 9)}, grid, []string{"a", "b"}, 0))
	assert.ErrorIs(t, f.PatternAnimation(&buf, [][]float64{make([]float64, 8)}, grid[:8], nil, 0), ErrIrregularGrid)
}

func TestSavePatternAnimation(t *testing.T) {
	grid := regularGrid(3, 4)
	lons := make([]float64, len(grid))
	for i, pt := range grid {
		lons[i] = pt.Lon
	}
	dir := t.TempDir()
	f := NewFigure(nil)
	f.Width, f.Height = 5*vg.Centimeter, 4*vg.Centimeter

	path := filepath.Join(dir, "wave.gif")
	require.NoError(t, f.SavePatternAnimation(path, travellingWave(lons, 2), grid, nil, 0))
	assert.FileExists(t, path)

	bad := filepath.Join(dir, "bad.gif")
	require.Error(t, f.SavePatternAnimation(bad, [][]float64{make([]float64, 11)}, grid[:11], nil, 0))
	assert.NoFileExists(t, bad)
}

func TestEOFMap_CustomColorMap(t *testing.T) {
	grid := regularGrid(4, 5)
	pattern := make([]float64, len(grid))
	for i, pt := range grid {
		pattern[i] = pt.Lat / 10
	}
	cmap, err := ParseCPT(bytes.NewBufferString(blueWhiteRed))
	require.NoError(t, err)

	f := NewFigure(nil)
	f.ColorMap = cmap
	path := filepath.Join(t.TempDir(), "eof.png")
	require.NoError(t, f.EOFMap(pattern, grid, nil, "EOF1", path))
	assertPNG(t, path)
	assert.NotEqual(t, -10.0, cmap.Min(), "levels rescale the map")
}
