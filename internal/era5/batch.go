package era5

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/climate-lab/eofkit/internal/ledger"
)

// Task is one request and the file it downloads to.
type Task struct {
	Request Request
	OutFile string
}

// Retriever is satisfied by *Client.
type Retriever interface {
	Retrieve(ctx context.Context, req Request, path string) error
}

type BatchSummary struct {
	Downloaded int
	Skipped    int
}

// YearlyTasks splits base into one request per year from start to end
// inclusive. Files are named dir/<prefix>_<year>.<nc|grib>.
func YearlyTasks(base Request, start, end int, dir, prefix string) ([]Task, error) {
	if base.Dataset == DatasetComplete {
		return nil, fmt.Errorf("%s requests are split by date, not year: %w", base.Dataset, ErrInvalidRequest)
	}
	if base.Date != "" {
		return nil, fmt.Errorf("yearly split conflicts with date %q: %w", base.Date, ErrInvalidRequest)
	}
	if end < start {
		return nil, fmt.Errorf("end year %d before start year %d: %w", end, start, ErrInvalidRequest)
	}
	base = base.WithDefaults()
	ext := "nc"
	if base.Format == "grib" {
		ext = "grib"
	}

	tasks := make([]Task, 0, end-start+1)
	for y := start; y <= end; y++ {
		req := base
		req.Years = []string{strconv.Itoa(y)}
		if err := req.Validate(); err != nil {
			return nil, err
		}
		tasks = append(tasks, Task{
			Request: req,
			OutFile: filepath.Join(dir, fmt.Sprintf("%s_%d.%s", prefix, y, ext)),
		})
	}
	return tasks, nil
}

// RunBatch runs tasks at most concurrency at a time. A task is skipped when
// the ledger recorded its request under the same output file and that file is
// still on disk. The first failure cancels
// the remaining tasks.
func RunBatch(ctx context.Context, r Retriever, l ledger.Ledger, tasks []Task, concurrency int) (BatchSummary, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	var downloaded, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, task := range tasks {
		g.Go(func() error {
			key, err := ledger.RequestKey(task.Request.Dataset, task.Request.Inputs())
			if err != nil {
				return err
			}
			file, ok, err := l.Done(gctx, key)
			if err != nil {
				return fmt.Errorf("ledger lookup: %w", err)
			}
			if ok && file == task.OutFile && exists(file) {
				log.Info().Str("file", file).Msg("already downloaded, skipping")
				skipped.Add(1)
				return nil
			}

			if err := r.Retrieve(gctx, task.Request, task.OutFile); err != nil {
				return fmt.Errorf("retrieve %s: %w", task.OutFile, err)
			}
			if err := l.MarkDone(gctx, key, task.OutFile); err != nil {
				return fmt.Errorf("ledger record: %w", err)
			}
			downloaded.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return BatchSummary{Downloaded: int(downloaded.Load()), Skipped: int(skipped.Load())}, err
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
