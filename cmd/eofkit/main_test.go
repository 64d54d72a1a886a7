package main

import (
	"fmt"
	"image/gif"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climate-lab/eofkit/internal/dataio"
)

func writeInputs(t *testing.T, dir string) (string, string) {
	t.Helper()
	lats := []float64{-40, -30, -20}
	lons := []float64{100, 110, 120, 130}

	var grid strings.Builder
	grid.WriteString("lat,lon\n")
	for _, la := range lats {
		for _, lo := range lons {
			fmt.Fprintf(&grid, "%v,%v\n", la, lo)
		}
	}

	rng := rand.New(rand.NewPCG(7, 8))
	var data strings.Builder
	for i := range 40 {
		amp := 3 * math.Sin(float64(i)/3)
		row := make([]string, 0, len(lats)*len(lons))
		for _, la := range lats {
			for j := range lons {
				sign := 1.0
				if j >= len(lons)/2 {
					sign = -1
				}
				v := sign*amp + 0.3*rng.NormFloat64() + la/10
				row = append(row, fmt.Sprintf("%.6f", v))
			}
		}
		data.WriteString(strings.Join(row, ",") + "\n")
	}

	gridPath := filepath.Join(dir, "grid.csv")
	dataPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(gridPath, []byte(grid.String()), 0o644))
	require.NoError(t, os.WriteFile(dataPath, []byte(data.String()), 0o644))
	return dataPath, gridPath
}

func TestAnalyzeThenPlot(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("EOF_MODES", "2")

	dataPath, gridPath := writeInputs(t, dir)
	out := filepath.Join(dir, "result.json.zst")
	plots := filepath.Join(dir, "figs")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"analyze", "--data", dataPath, "--grid", gridPath, "--out", out, "--plots", plots, "--terminal=false"})
	require.NoError(t, cmd.Execute())

	rf, err := dataio.ReadResult(out)
	require.NoError(t, err)
	assert.Equal(t, 2, rf.Modes)
	assert.Equal(t, 40, rf.Observations)
	assert.Len(t, rf.Grid, 12)
	assert.Greater(t, rf.ExplainedVariance[0], 50.0)

	for _, name := range []string{"explained_variance.png", "pcs.png", "eof1.png", "eof2.png"} {
		assert.FileExists(t, filepath.Join(plots, name))
	}

	replot := filepath.Join(dir, "replot")
	cmd = newRootCmd()
	cmd.SetArgs([]string{"plot", "--result", out, "--out", replot, "--modes", "1"})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, filepath.Join(replot, "eof1.png"))
	assert.NoFileExists(t, filepath.Join(replot, "eof2.png"))
}

func TestAnalyze_GridMismatch(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	dataPath, _ := writeInputs(t, dir)
	badGrid := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badGrid, []byte("0,0\n1,1\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"analyze", "--data", dataPath, "--grid", badGrid, "--out", filepath.Join(dir, "r.json"), "--terminal=false"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grid has 2 points")
	assert.NoFileExists(t, filepath.Join(dir, "r.json"))
}

func TestNewRootCmd_FlagsDoNotCarryOver(t *testing.T) {
	first := newRootCmd()
	analyze, _, err := first.Find([]string{"analyze"})
	require.NoError(t, err)
	require.NoError(t, analyze.ParseFlags([]string{"--plots", "figs", "--modes", "3"}))
	assert.True(t, analyze.Flags().Changed("plots"))

	fresh, _, err := newRootCmd().Find([]string{"analyze"})
	require.NoError(t, err)
	assert.False(t, fresh.Flags().Changed("plots"))
	assert.False(t, fresh.Flags().Changed("modes"))
	plots, err := fresh.Flags().GetString("plots")
	require.NoError(t, err)
	assert.Empty(t, plots)
}

func TestAnimate(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("PLOT_WIDTH_CM", "6")
	t.Setenv("PLOT_HEIGHT_CM", "4")

	cpt := filepath.Join(dir, "bwr.cpt")
	require.NoError(t, os.WriteFile(cpt, []byte("-1 0 0 255 0 255 255 255\n0 255 255 255 1 255 0 0\n"), 0o644))
	t.Setenv("PLOT_CPT", cpt)

	dataPath, gridPath := writeInputs(t, dir)
	out := filepath.Join(dir, "field.gif")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"animate", "--data", dataPath, "--grid", gridPath, "--out", out, "--stride", "10"})
	require.NoError(t, cmd.Execute())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, anim.Image, 4)
}

func TestAnimate_MissingColorMap(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PLOT_CPT", filepath.Join(dir, "missing.cpt"))

	dataPath, gridPath := writeInputs(t, dir)
	cmd := newRootCmd()
	cmd.SetArgs([]string{"animate", "--data", dataPath, "--grid", gridPath, "--out", filepath.Join(dir, "x.gif")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "color map")
}
