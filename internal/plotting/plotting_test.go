package plotting

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/climate-lab/eofkit/internal/config"
	"github.com/climate-lab/eofkit/internal/dataio"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 4)
	assert.Equal(t, pngMagic, raw[:4])
}

func regularGrid(nlat, nlon int) dataio.Grid {
	g := make(dataio.Grid, 0, nlat*nlon)
	for i := range nlat {
		for j := range nlon {
			g = append(g, dataio.Point{Lat: -60 + 10*float64(i), Lon: -165 + 10*float64(j)})
		}
	}
	return g
}

func TestNewFigure(t *testing.T) {
	f := NewFigure(nil)
	assert.Equal(t, 11, f.Levels)

	f = NewFigure(&config.PlotEnvConfig{PlotWidthCm: 10, PlotHeightCm: 5, ContourLevels: 7})
	assert.InDelta(t, 2*float64(f.Height), float64(f.Width), 1e-9)
	assert.Equal(t, 7, f.Levels)
}

func TestNiceLevels_Symmetric(t *testing.T) {
	data := make([]float64, 0, 201)
	for v := -100; v <= 60; v++ {
		data = append(data, float64(v))
	}
	levels := NiceLevels(data, 10)
	require.NotEmpty(t, levels)

	assert.Contains(t, levels, 0.0)
	assert.InDelta(t, -levels[0], levels[len(levels)-1], 1e-9)

	step := levels[1] - levels[0]
	for i := 1; i < len(levels); i++ {
		assert.InDelta(t, step, levels[i]-levels[i-1], 1e-9)
	}
	mag := math.Pow(10, math.Floor(math.Log10(step)))
	assert.Contains(t, []float64{1, 2, 2.5, 5, 10}, math.Round(step/mag*10)/10)
}

func TestNiceLevels_Positive(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = 5000 + float64(i)
	}
	levels := NiceLevels(data, 5)
	require.NotEmpty(t, levels)
	for _, l := range levels {
		assert.Greater(t, l, 5000.0)
		assert.Less(t, l, 5099.0)
	}
}

func TestNiceLevels_Degenerate(t *testing.T) {
	assert.Nil(t, NiceLevels(nil, 10))
	assert.Nil(t, NiceLevels([]float64{math.NaN()}, 10))
	assert.Equal(t, []float64{3}, NiceLevels([]float64{3, 3, 3}, 10))
}

func TestPCTimeSeries(t *testing.T) {
	pcs := mat.NewDense(2, 50, nil)
	for i := range 50 {
		pcs.Set(0, i, math.Sin(float64(i)/5))
		pcs.Set(1, i, math.Cos(float64(i)/7))
	}
	path := filepath.Join(t.TempDir(), "pcs.png")
	require.NoError(t, NewFigure(nil).PCTimeSeries(pcs, 0, "Leading PCs", path))
	assertPNG(t, path)
}

func TestExplainedVarianceBars(t *testing.T) {
	dir := t.TempDir()
	f := NewFigure(nil)

	path := filepath.Join(dir, "var.png")
	require.NoError(t, f.ExplainedVarianceBars([]float64{45, 20, 10}, []float64{5, 2.5, 1}, path))
	assertPNG(t, path)

	require.NoError(t, f.ExplainedVarianceBars([]float64{45, 20}, nil, filepath.Join(dir, "noerr.png")))

	assert.ErrorIs(t, f.ExplainedVarianceBars(nil, nil, filepath.Join(dir, "x.png")), ErrNoData)
	assert.Error(t, f.ExplainedVarianceBars([]float64{1, 2}, []float64{1}, filepath.Join(dir, "x.png")))
}

func TestEOFMap(t *testing.T) {
	grid := regularGrid(8, 12)
	pattern := make([]float64, len(grid))
	for i, pt := range grid {
		pattern[i] = math.Sin(pt.Lat*math.Pi/90) * math.Cos(pt.Lon*math.Pi/180)
	}
	path := filepath.Join(t.TempDir(), "eof1.png")
	require.NoError(t, NewFigure(nil).EOFMap(pattern, grid, nil, "EOF1", path))
	assertPNG(t, path)
}

func TestEOFMap_Errors(t *testing.T) {
	f := NewFigure(nil)
	path := filepath.Join(t.TempDir(), "bad.png")
	grid := regularGrid(3, 3)

	err := f.EOFMap(make([]float64, 8), grid[:8], nil, "t", path)
	assert.ErrorIs(t, err, ErrIrregularGrid)

	dup := append(dataio.Grid{}, grid...)
	dup[1] = dup[0]
	err = f.EOFMap(make([]float64, 9), dup, nil, "t", path)
	assert.ErrorIs(t, err, ErrIrregularGrid)

	err = f.EOFMap(make([]float64, 9), grid, nil, "flat", path)
	assert.Error(t, err)

	assert.Error(t, f.EOFMap([]float64{1}, grid, nil, "t", path))
}

func TestPlotExplainedVarianceTerminal(t *testing.T) {
	var buf bytes.Buffer
	PlotExplainedVarianceTerminal(&buf, []float64{50, 25, 0}, []float64{4, 2, 0.5}, "SLP EOFs")
	out := buf.String()

	assert.Contains(t, out, "SLP EOFs:")
	lines := strings.Split(out, "\n")
	var rows []string
	for _, l := range lines {
		if strings.Contains(l, "(±") {
			rows = append(rows, l)
		}
	}
	require.Len(t, rows, 3)
	assert.Equal(t, maxBarWidth, strings.Count(rows[0], "█"))
	assert.Equal(t, maxBarWidth/2, strings.Count(rows[1], "█"))
	assert.Contains(t, rows[2], "▏")
	assert.Contains(t, out, "75.00%")
}
