package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/climate-lab/eofkit/internal/eof"
)

type animateOptions struct {
	data      string
	header    bool
	grid      string
	out       string
	stride    int
	anomalies bool
}

func newAnimateCmd() *cobra.Command {
	var o animateOptions
	cmd := &cobra.Command{
		Use:   "animate",
		Short: "Write a GIF of the data field stepping through time",
		Long: `Draws one map per time step of a CSV data matrix on its lat/lon grid and
writes the frames as a looping GIF. All frames share the same contour levels.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runAnimate(o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.data, "data", "", "CSV data matrix, one row per time step")
	f.BoolVar(&o.header, "header", false, "skip the first row of the data file")
	f.StringVar(&o.grid, "grid", "", "CSV of lat,lon for each data column")
	f.StringVar(&o.out, "out", "field.gif", "output GIF")
	f.IntVar(&o.stride, "stride", 1, "draw every n-th time step")
	f.BoolVar(&o.anomalies, "anomalies", true, "remove the time mean before drawing")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("grid")
	return cmd
}

func runAnimate(o animateOptions) error {
	if o.stride < 1 {
		return fmt.Errorf("stride must be positive, got %d", o.stride)
	}
	z, err := readMatrix(o.data, o.header)
	if err != nil {
		return err
	}
	grid, err := readGrid(o.grid)
	if err != nil {
		return err
	}
	n, p := z.Dims()
	if len(grid) != p {
		return fmt.Errorf("grid has %d points but data has %d columns", len(grid), p)
	}
	if o.anomalies {
		if z, err = eof.Anomalies(z); err != nil {
			return err
		}
	}

	var frames [][]float64
	var titles []string
	for t := 0; t < n; t += o.stride {
		frames = append(frames, mat.Row(nil, t, z))
		titles = append(titles, fmt.Sprintf("Time step %d", t+1))
	}

	fig, err := newFigure()
	if err != nil {
		return err
	}
	delay := time.Duration(cfg.FrameDelayMs) * time.Millisecond
	if err := fig.SavePatternAnimation(o.out, frames, grid, titles, delay); err != nil {
		return err
	}
	log.Info().Str("file", o.out).Int("frames", len(frames)).Msg("animation written")
	return nil
}
