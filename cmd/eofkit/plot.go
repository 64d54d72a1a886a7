package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/climate-lab/eofkit/internal/dataio"
	"github.com/climate-lab/eofkit/internal/plotting"
)

func newPlotCmd() *cobra.Command {
	var result, out string
	var modes int
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Draw figures from a saved analysis result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rf, err := dataio.ReadResult(result)
			if err != nil {
				return err
			}
			return renderPlots(rf, out, modes)
		},
	}

	f := cmd.Flags()
	f.StringVar(&result, "result", "eof_result.json.zst", "result file written by analyze")
	f.StringVar(&out, "out", "plots", "output directory")
	f.IntVar(&modes, "modes", 0, "number of modes to draw (default: all retained)")
	return cmd
}

// renderPlots writes the variance chart, the PC series and, when the result
// carries a grid, one map per mode.
func renderPlots(rf dataio.ResultFile, dir string, modes int) error {
	res, err := rf.Result()
	if err != nil {
		return err
	}
	if modes <= 0 || modes > res.Modes {
		modes = res.Modes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	fig, err := newFigure()
	if err != nil {
		return err
	}
	ext := "." + strings.TrimPrefix(strings.ToLower(cfg.PlotFormat), ".")
	name := func(base string) string { return filepath.Join(dir, base+ext) }

	if err := fig.ExplainedVarianceBars(res.ExplainedVariance[:modes], res.NorthError[:modes], name("explained_variance")); err != nil {
		return fmt.Errorf("explained variance plot: %w", err)
	}
	if err := fig.PCTimeSeries(res.PCs, modes, "Principal components", name("pcs")); err != nil {
		return fmt.Errorf("pc plot: %w", err)
	}

	if len(rf.Grid) == 0 {
		log.Warn().Msg("result has no grid; skipping EOF maps")
		return nil
	}
	for j := range modes {
		pattern := mat.Col(nil, j, res.Patterns)
		title := fmt.Sprintf("EOF%d (%.1f%%)", j+1, res.ExplainedVariance[j])
		if err := fig.EOFMap(pattern, rf.Grid, nil, title, name(fmt.Sprintf("eof%d", j+1))); err != nil {
			return fmt.Errorf("eof %d map: %w", j+1, err)
		}
	}
	log.Info().Str("dir", dir).Int("modes", modes).Msg("plots written")
	return nil
}

func newFigure() (plotting.Figure, error) {
	fig := plotting.NewFigure(&cfg.PlotEnvConfig)
	if cfg.ColorMapCPT == "" {
		return fig, nil
	}
	cmap, err := plotting.LoadCPT(cfg.ColorMapCPT)
	if err != nil {
		return fig, fmt.Errorf("color map %s: %w", cfg.ColorMapCPT, err)
	}
	fig.ColorMap = cmap
	return fig, nil
}
