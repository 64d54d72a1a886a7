// Package plotting draws EOF analysis figures: principal component time
// series, explained variance with North error bars and spatial pattern maps.
package plotting

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/climate-lab/eofkit/internal/config"
	"github.com/climate-lab/eofkit/internal/dataio"
)

var (
	ErrNoData        = errors.New("plotting: nothing to plot")
	ErrIrregularGrid = errors.New("plotting: points do not form a regular lat/lon grid")
)

// Figure holds the output size shared by every plot. The file format follows
// the extension of the output path. A nil ColorMap draws maps blue to red.
type Figure struct {
	Width    vg.Length
	Height   vg.Length
	Levels   int
	ColorMap palette.ColorMap
}

func NewFigure(cfg *config.PlotEnvConfig) Figure {
	f := Figure{Width: 20 * vg.Centimeter, Height: 12 * vg.Centimeter, Levels: 11}
	if cfg == nil {
		return f
	}
	if cfg.PlotWidthCm > 0 {
		f.Width = vg.Length(cfg.PlotWidthCm) * vg.Centimeter
	}
	if cfg.PlotHeightCm > 0 {
		f.Height = vg.Length(cfg.PlotHeightCm) * vg.Centimeter
	}
	if cfg.ContourLevels > 0 {
		f.Levels = cfg.ContourLevels
	}
	return f
}

// PCTimeSeries draws the first modes rows of pcs (k x n) against time step.
func (f Figure) PCTimeSeries(pcs mat.Matrix, modes int, title, path string) error {
	k, n := pcs.Dims()
	if k == 0 || n == 0 {
		return ErrNoData
	}
	if modes <= 0 || modes > k {
		modes = k
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time step"
	p.Y.Label.Text = "Amplitude"
	p.Add(plotter.NewGrid())

	for i := range modes {
		pts := make(plotter.XYs, n)
		for t := range n {
			pts[t].X = float64(t)
			pts[t].Y = pcs.At(i, t)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("pc %d: %w", i+1, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("PC%d", i+1), line)
	}
	p.Legend.Top = true

	return p.Save(f.Width, f.Height, path)
}

type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

// ExplainedVarianceBars draws the percent variance of each mode. When
// northErr is given, each bar carries its North sampling error.
func (f Figure) ExplainedVarianceBars(pct, northErr []float64, path string) error {
	if len(pct) == 0 {
		return ErrNoData
	}
	if len(northErr) != 0 && len(northErr) != len(pct) {
		return fmt.Errorf("plotting: %d error values for %d modes", len(northErr), len(pct))
	}

	p := plot.New()
	p.Title.Text = "Explained variance"
	p.Y.Label.Text = "Variance (%)"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(pct), vg.Points(18))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	if len(northErr) > 0 {
		pts := errPoints{
			XYs:     make(plotter.XYs, len(pct)),
			YErrors: make(plotter.YErrors, len(pct)),
		}
		for i := range pct {
			pts.XYs[i].X = float64(i)
			pts.XYs[i].Y = pct[i]
			pts.YErrors[i].Low = northErr[i]
			pts.YErrors[i].High = northErr[i]
		}
		eb, err := plotter.NewYErrorBars(pts)
		if err != nil {
			return err
		}
		p.Add(eb)
	}

	names := make([]string, len(pct))
	for i := range pct {
		names[i] = fmt.Sprintf("EOF%d", i+1)
	}
	p.NominalX(names...)

	return p.Save(f.Width, f.Height, path)
}

// EOFMap draws one spatial pattern as filled contours on a regular lat/lon
// grid. pattern[i] belongs to grid[i]. Nil levels are chosen by NiceLevels.
func (f Figure) EOFMap(pattern []float64, grid dataio.Grid, levels []float64, title, path string) error {
	if levels == nil {
		levels = NiceLevels(pattern, f.Levels)
	}
	p, err := f.mapPlot(pattern, grid, levels, title)
	if err != nil {
		return err
	}
	return p.Save(f.Width, f.Height, path)
}

func (f Figure) mapPlot(pattern []float64, grid dataio.Grid, levels []float64, title string) (*plot.Plot, error) {
	if len(pattern) == 0 {
		return nil, ErrNoData
	}
	if len(pattern) != len(grid) {
		return nil, fmt.Errorf("plotting: %d values for %d grid points", len(pattern), len(grid))
	}
	g, err := newLatLonGrid(pattern, grid)
	if err != nil {
		return nil, err
	}
	if len(levels) < 2 {
		return nil, fmt.Errorf("plotting: pattern %q has no contrast to contour", title)
	}

	cmap := f.ColorMap
	if cmap == nil {
		cmap = moreland.SmoothBlueRed()
	}
	cmap.SetMin(levels[0])
	cmap.SetMax(levels[len(levels)-1])
	fill := cmap.Palette(max(len(levels)-1, 2))
	colors := fill.Colors()

	hm := plotter.NewHeatMap(g, fill)
	hm.Min = levels[0]
	hm.Max = levels[len(levels)-1]
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(hm)
	p.Add(plotter.NewContour(g, levels, colorList{color.Gray{Y: 60}}))
	return p, nil
}

// latLonGrid implements plotter.GridXYZ with columns along longitude and rows
// along latitude.
type latLonGrid struct {
	lons, lats []float64
	z          [][]float64
}

func newLatLonGrid(pattern []float64, grid dataio.Grid) (*latLonGrid, error) {
	lats := grid.UniqueLatitudes()
	lons := grid.UniqueLongitudes()
	if len(lats) < 2 || len(lons) < 2 || len(lats)*len(lons) != len(grid) {
		return nil, fmt.Errorf("%d points on %d latitudes and %d longitudes: %w", len(grid), len(lats), len(lons), ErrIrregularGrid)
	}
	row := index(lats)
	col := index(lons)

	z := make([][]float64, len(lats))
	seen := make([][]bool, len(lats))
	for r := range z {
		z[r] = make([]float64, len(lons))
		seen[r] = make([]bool, len(lons))
	}
	for i, pt := range grid {
		r, c := row[pt.Lat], col[pt.Lon]
		if seen[r][c] {
			return nil, fmt.Errorf("duplicate point (%v, %v): %w", pt.Lat, pt.Lon, ErrIrregularGrid)
		}
		seen[r][c] = true
		z[r][c] = pattern[i]
	}
	return &latLonGrid{lons: lons, lats: lats, z: z}, nil
}

func index(vals []float64) map[float64]int {
	m := make(map[float64]int, len(vals))
	for i, v := range vals {
		m[v] = i
	}
	return m
}

func (g *latLonGrid) Dims() (c, r int) { return len(g.lons), len(g.lats) }
func (g *latLonGrid) Z(c, r int) float64 { return g.z[r][c] }
func (g *latLonGrid) X(c int) float64 { return g.lons[c] }
func (g *latLonGrid) Y(r int) float64 { return g.lats[r] }
