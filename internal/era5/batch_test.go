package era5

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climate-lab/eofkit/internal/ledger"
)

type fakeRetriever struct {
	mu       sync.Mutex
	calls    []string
	inflight atomic.Int32
	peak     atomic.Int32
	failOn   string
}

func (f *fakeRetriever) Retrieve(_ context.Context, req Request, path string) error {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.Years[0])
	f.mu.Unlock()

	if req.Years[0] == f.failOn {
		return errors.New("queue full")
	}
	return os.WriteFile(path, []byte(req.Years[0]), 0o644)
}

func slpBase() Request {
	return Request{
		Dataset:   DatasetSingleLevels,
		Variables: []string{"mean_sea_level_pressure"},
		Area:      &Area{North: 20, West: -165, South: -60, East: -12},
		Grid:      &Grid{Lat: 0.5, Lon: 0.5},
	}
}

func TestYearlyTasks(t *testing.T) {
	tasks, err := YearlyTasks(slpBase(), 1979, 1981, "/data/slp", "era5_slp_sfc_6hr")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, []string{"1979"}, tasks[0].Request.Years)
	assert.Equal(t, []string{"1981"}, tasks[2].Request.Years)
	assert.Equal(t, filepath.Join("/data/slp", "era5_slp_sfc_6hr_1980.nc"), tasks[1].OutFile)
	assert.Equal(t, []string{"00:00", "06:00", "12:00", "18:00"}, tasks[0].Request.Times)

	grib := slpBase()
	grib.Format = "grib"
	tasks, err = YearlyTasks(grib, 2000, 2000, "out", "t2m")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "t2m_2000.grib"), tasks[0].OutFile)
}

func TestYearlyTasks_Invalid(t *testing.T) {
	_, err := YearlyTasks(slpBase(), 1990, 1980, "", "x")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	withDate := slpBase()
	withDate.Date = "2000-01-01"
	_, err = YearlyTasks(withDate, 2000, 2001, "", "x")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = YearlyTasks(Request{Dataset: DatasetComplete}, 2000, 2001, "", "x")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRunBatch_DownloadsAndRecords(t *testing.T) {
	dir := t.TempDir()
	tasks, err := YearlyTasks(slpBase(), 1979, 1984, dir, "slp")
	require.NoError(t, err)

	r := &fakeRetriever{}
	l := ledger.NewMemory()
	sum, err := RunBatch(context.Background(), r, l, tasks, 2)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Downloaded: 6}, sum)
	assert.LessOrEqual(t, r.peak.Load(), int32(2))

	for _, task := range tasks {
		key, err := ledger.RequestKey(task.Request.Dataset, task.Request.Inputs())
		require.NoError(t, err)
		file, ok, err := l.Done(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, task.OutFile, file)
	}
}

func TestRunBatch_SkipsRecordedFiles(t *testing.T) {
	dir := t.TempDir()
	tasks, err := YearlyTasks(slpBase(), 1979, 1981, dir, "slp")
	require.NoError(t, err)
	l := ledger.NewMemory()

	_, err = RunBatch(context.Background(), &fakeRetriever{}, l, tasks, 3)
	require.NoError(t, err)

	// a recorded file that has since been removed is fetched again
	require.NoError(t, os.Remove(tasks[1].OutFile))

	r := &fakeRetriever{}
	sum, err := RunBatch(context.Background(), r, l, tasks, 3)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Downloaded: 1, Skipped: 2}, sum)
	assert.Equal(t, []string{"1980"}, r.calls)
}

func TestRunBatch_Failure(t *testing.T) {
	dir := t.TempDir()
	tasks, err := YearlyTasks(slpBase(), 1979, 1979, dir, "slp")
	require.NoError(t, err)

	l := ledger.NewMemory()
	_, err = RunBatch(context.Background(), &fakeRetriever{failOn: "1979"}, l, tasks, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")

	key, err := ledger.RequestKey(tasks[0].Request.Dataset, tasks[0].Request.Inputs())
	require.NoError(t, err)
	_, ok, err := l.Done(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunBatch_NewDestinationIsFetched(t *testing.T) {
	l := ledger.NewMemory()
	first, err := YearlyTasks(slpBase(), 2000, 2001, t.TempDir(), "a")
	require.NoError(t, err)
	_, err = RunBatch(context.Background(), &fakeRetriever{}, l, first, 2)
	require.NoError(t, err)

	second, err := YearlyTasks(slpBase(), 2000, 2001, t.TempDir(), "b")
	require.NoError(t, err)
	sum, err := RunBatch(context.Background(), &fakeRetriever{}, l, second, 2)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Downloaded: 2}, sum)
	for _, task := range second {
		assert.FileExists(t, task.OutFile)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "slp_2000.nc")
	require.NoError(t, os.WriteFile(file, []byte("2000"), 0o644))

	assert.True(t, exists(file))
	assert.False(t, exists(filepath.Join(dir, "missing.nc")))
	// stat fails with ENOTDIR, not ENOENT
	assert.False(t, exists(filepath.Join(file, "child.nc")))
}
