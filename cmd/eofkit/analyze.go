package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/climate-lab/eofkit/internal/analysis"
	"github.com/climate-lab/eofkit/internal/dataio"
	"github.com/climate-lab/eofkit/internal/plotting"
)

type analyzeOptions struct {
	data        string
	header      bool
	grid        string
	modes       int
	method      string
	standardize bool
	neff        float64
	noWeight    bool
	out         string
	plotDir     string
	terminal    bool
}

func newAnalyzeCmd() *cobra.Command {
	var o analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an EOF analysis on a CSV data matrix",
		Long: `Reads an n x p matrix (rows are time steps, columns are grid points),
removes the time mean, applies sqrt(cos(latitude)) weights when a grid file is
given, and writes eigenvalues, EOFs and principal components to a result file.
Result files ending in .zst are zstd compressed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.data, "data", "", "CSV data matrix, one row per time step")
	f.BoolVar(&o.header, "header", false, "skip the first row of the data file")
	f.StringVar(&o.grid, "grid", "", "CSV of lat,lon for each data column")
	f.IntVar(&o.modes, "modes", 0, "number of modes to retain (default EOF_MODES)")
	f.StringVar(&o.method, "method", "", "svd or covariance (default EOF_METHOD)")
	f.BoolVar(&o.standardize, "standardize", false, "scale each column to unit variance (correlation EOFs)")
	f.Float64Var(&o.neff, "neff", 0, "effective sample size for the North test (default: observations)")
	f.BoolVar(&o.noWeight, "no-weight", false, "do not apply latitude weights even when a grid is given")
	f.StringVar(&o.out, "out", "eof_result.json.zst", "result file")
	f.StringVar(&o.plotDir, "plots", "", "write figures to this directory")
	f.BoolVar(&o.terminal, "terminal", true, "print explained variance to the terminal")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runAnalyze(cmd *cobra.Command, o analyzeOptions) error {
	if !cmd.Flags().Changed("modes") {
		o.modes = cfg.Modes
	}
	if !cmd.Flags().Changed("method") {
		o.method = cfg.AnalysisEnvConfig.Normalized()
	}
	if !cmd.Flags().Changed("standardize") {
		o.standardize = cfg.Standardize
	}
	if !cmd.Flags().Changed("neff") {
		o.neff = cfg.EffectiveSampleSize
	}

	method, err := analysis.ParseMethod(o.method)
	if err != nil {
		return err
	}

	z, err := readMatrix(o.data, o.header)
	if err != nil {
		return err
	}
	_, p := z.Dims()

	var grid dataio.Grid
	if o.grid != "" {
		grid, err = readGrid(o.grid)
		if err != nil {
			return err
		}
		if len(grid) != p {
			return fmt.Errorf("grid has %d points but data has %d columns", len(grid), p)
		}
	}

	opts := []analysis.Option{
		analysis.WithModes(o.modes),
		analysis.WithMethod(method),
		analysis.WithStandardize(o.standardize),
		analysis.WithEffectiveSampleSize(o.neff),
	}
	if grid != nil && !o.noWeight {
		opts = append(opts, analysis.WithLatitudes(grid.Latitudes()))
	}

	res, err := analysis.NewPipeline(opts...).Run(z)
	if err != nil {
		return err
	}

	rf := dataio.NewResultFile(res, grid)
	if err := dataio.WriteResult(o.out, rf); err != nil {
		return err
	}
	log.Info().Str("file", o.out).Int("modes", res.Modes).Msg("result written")

	if o.terminal {
		plotting.PlotExplainedVarianceTerminal(os.Stdout, res.ExplainedVariance, res.NorthError, "Explained variance")
	}
	if o.plotDir != "" {
		return renderPlots(rf, o.plotDir, res.Modes)
	}
	return nil
}

func readMatrix(path string, header bool) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataio.ReadMatrixCSV(f, header)
}

func readGrid(path string) (dataio.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataio.ReadGridCSV(f)
}
