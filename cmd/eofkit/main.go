package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/climate-lab/eofkit/internal/config"
	"github.com/climate-lab/eofkit/internal/utils/logger"
)

var cfg *config.AppConfig

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	var environment, logLevel string

	root := &cobra.Command{
		Use:   "eofkit",
		Short: "Empirical orthogonal function analysis of gridded climate data",
		Long: `eofkit decomposes a time x space data matrix into EOF patterns and
principal component time series, downloads ERA5 reanalysis fields from the
Copernicus Climate Data Store and plots the results.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("env") {
				c.Environment = environment
			}
			if cmd.Flags().Changed("log-level") {
				c.LogLevel = logLevel
			}
			logger.Init(c.Environment, c.LogLevel)
			cfg = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&environment, "env", "", "environment (dev, test, prod); overrides ENVIRONMENT")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(newAnalyzeCmd(), newAnimateCmd(), newDownloadCmd(), newPlotCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("eofkit failed")
		os.Exit(1)
	}
}
