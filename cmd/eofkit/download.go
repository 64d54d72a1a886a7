package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/climate-lab/eofkit/internal/era5"
	"github.com/climate-lab/eofkit/internal/ledger"
)

type downloadOptions struct {
	request     string
	out         string
	dir         string
	prefix      string
	start       int
	end         int
	concurrency int
}

func newDownloadCmd() *cobra.Command {
	var o downloadOptions
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Retrieve ERA5 data from the Climate Data Store",
		Long: `Submits the YAML request to the CDS retrieve API, waits for the job and
downloads the result. With --start and --end the request is split into one
file per year and the years are fetched concurrently; years already recorded
in the download ledger are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.request, "request", "", "YAML request file")
	f.StringVar(&o.out, "out", "", "output file for a single retrieval")
	f.StringVar(&o.dir, "dir", "", "output directory for yearly files (default DATA_DIR)")
	f.StringVar(&o.prefix, "prefix", "era5", "file name prefix for yearly files")
	f.IntVar(&o.start, "start", 0, "first year of a yearly batch")
	f.IntVar(&o.end, "end", 0, "last year of a yearly batch")
	f.IntVar(&o.concurrency, "concurrency", 0, "parallel retrievals (default CDS_DOWNLOAD_CONCURRENCY)")
	_ = cmd.MarkFlagRequired("request")
	cmd.MarkFlagsRequiredTogether("start", "end")
	cmd.MarkFlagsMutuallyExclusive("out", "start")
	return cmd
}

func runDownload(cmd *cobra.Command, o downloadOptions) error {
	if o.dir == "" {
		o.dir = cfg.DataDir
	}
	if o.concurrency <= 0 {
		o.concurrency = cfg.DownloadConcurrency
	}

	f, err := os.Open(o.request)
	if err != nil {
		return err
	}
	req, err := era5.LoadRequest(f)
	f.Close()
	if err != nil {
		return err
	}

	client, err := era5.NewClient(&cfg.CDSEnvConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cmd.Flags().Changed("start") {
		out := o.out
		if out == "" {
			ext := "nc"
			if req.Format == "grib" {
				ext = "grib"
			}
			out = filepath.Join(o.dir, fmt.Sprintf("%s.%s", o.prefix, ext))
		}
		return client.Retrieve(ctx, req, out)
	}

	tasks, err := era5.YearlyTasks(req, o.start, o.end, o.dir, o.prefix)
	if err != nil {
		return err
	}
	l, closeLedger := openLedger()
	defer closeLedger()

	sum, err := era5.RunBatch(ctx, client, l, tasks, o.concurrency)
	log.Info().Int("downloaded", sum.Downloaded).Int("skipped", sum.Skipped).Int("total", len(tasks)).Msg("batch finished")
	return err
}

func openLedger() (ledger.Ledger, func()) {
	if !cfg.LedgerEnabled {
		return ledger.NewMemory(), func() {}
	}
	r, err := ledger.NewRedis(&cfg.RedisEnvConfig)
	if err != nil {
		log.Error().Err(err).Msg("failed to init redis ledger, continuing with in-memory ledger")
		return ledger.NewMemory(), func() {}
	}
	return r, r.Close
}
