package dataset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentbench/fmr-cli/internal/config"
	"github.com/rentbench/fmr-cli/internal/db"
	"github.com/rentbench/fmr-cli/internal/fetcher"
)

// mockDataset implements Dataset for testing.
type mockDataset struct {
	name      string
	table     string
	cadence   Cadence
	shouldRun bool
	syncErr   error
	syncRows  int64
	synced    bool
}

func (m *mockDataset) Name() string     { return m.name }
func (m *mockDataset) Table() string    { return m.table }
func (m *mockDataset) Cadence() Cadence { return m.cadence }
func (m *mockDataset) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return m.shouldRun
}
func (m *mockDataset) Sync(ctx context.Context, pool db.Pool, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	m.synced = true
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return &SyncResult{RowsSynced: m.syncRows}, nil
}

func TestRegistry_DefaultDatasets(t *testing.T) {
	r := NewRegistry(&config.Config{})
	assert.Equal(t, []string{"fmr", "fmr_history", "safmr", "crosswalk", "marketrent", "taxrate", "mortgage_rate"}, r.AllNames())
}

func TestRegistry_Get(t *testing.T) {
	r := &Registry{datasets: make(map[string]Dataset)}
	r.Register(&mockDataset{name: "a"})

	d, err := r.Get("a")
	assert.NoError(t, err)
	assert.Equal(t, "a", d.Name())

	_, err = r.Get("nonexistent")
	assert.Error(t, err)
}

func TestRegistry_Select(t *testing.T) {
	r := &Registry{datasets: make(map[string]Dataset)}
	r.Register(&mockDataset{name: "a"})
	r.Register(&mockDataset{name: "b"})

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	named, err := r.Select([]string{"b"})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "b", named[0].Name())

	_, err = r.Select([]string{"nonexistent"})
	assert.Error(t, err)
}

func newTestEngine(t *testing.T, reg *Registry) (*Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	syncLog := NewSyncLog(pool)
	return NewEngine(pool, &stubFetcher{}, syncLog, reg, t.TempDir()), pool
}

func expectMigrate(pool pgxmock.PgxPoolIface) {
	pool.ExpectExec("CREATE TABLE IF NOT EXISTS sync_log").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
}

func TestEngine_RunSyncsDueDataset(t *testing.T) {
	ds := &mockDataset{name: "fmr", table: "fmr_county", shouldRun: true, syncRows: 42}
	reg := &Registry{datasets: make(map[string]Dataset)}
	reg.Register(ds)

	engine, pool := newTestEngine(t, reg)
	expectMigrate(pool)
	pool.ExpectQuery("SELECT started_at FROM sync_log").
		WithArgs("fmr").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(time.Now().Add(-48 * time.Hour)))
	pool.ExpectExec("INSERT INTO sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec("UPDATE sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := engine.Run(context.Background(), RunOpts{})
	require.NoError(t, err)
	assert.True(t, ds.synced)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestEngine_RunSkipsNotDue(t *testing.T) {
	ds := &mockDataset{name: "fmr", shouldRun: false}
	reg := &Registry{datasets: make(map[string]Dataset)}
	reg.Register(ds)

	engine, pool := newTestEngine(t, reg)
	expectMigrate(pool)
	pool.ExpectQuery("SELECT started_at FROM sync_log").
		WithArgs("fmr").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(time.Now()))

	err := engine.Run(context.Background(), RunOpts{})
	require.NoError(t, err)
	assert.False(t, ds.synced)
}

func TestEngine_ForceIgnoresSchedule(t *testing.T) {
	ds := &mockDataset{name: "fmr", shouldRun: false, syncRows: 1}
	reg := &Registry{datasets: make(map[string]Dataset)}
	reg.Register(ds)

	engine, pool := newTestEngine(t, reg)
	expectMigrate(pool)
	pool.ExpectExec("INSERT INTO sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec("UPDATE sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := engine.Run(context.Background(), RunOpts{Force: true})
	require.NoError(t, err)
	assert.True(t, ds.synced)
}

func TestEngine_RecordsFailure(t *testing.T) {
	ds := &mockDataset{name: "fmr", shouldRun: true, syncErr: errors.New("boom")}
	reg := &Registry{datasets: make(map[string]Dataset)}
	reg.Register(ds)

	engine, pool := newTestEngine(t, reg)
	expectMigrate(pool)
	pool.ExpectExec("INSERT INTO sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec("UPDATE sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := engine.Run(context.Background(), RunOpts{Force: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 dataset(s) failed")
}

func TestEngine_UnknownDataset(t *testing.T) {
	engine, pool := newTestEngine(t, NewRegistry(&config.Config{}))
	expectMigrate(pool)

	err := engine.Run(context.Background(), RunOpts{Datasets: []string{"nonexistent"}})
	assert.Error(t, err)
}
