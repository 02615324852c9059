package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSyncLog(t *testing.T) (*SyncLog, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewSyncLog(pool), pool
}

func TestSyncLog_StartReturnsID(t *testing.T) {
	s, pool := newMockSyncLog(t)
	pool.ExpectExec("INSERT INTO sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.Start(context.Background(), "fmr")
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestSyncLog_LastSuccess(t *testing.T) {
	s, pool := newMockSyncLog(t)
	want := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	pool.ExpectQuery("SELECT started_at FROM sync_log").
		WithArgs("fmr").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(want))

	got, err := s.LastSuccess(context.Background(), "fmr")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSyncLog_LastSuccessNeverSynced(t *testing.T) {
	s, pool := newMockSyncLog(t)
	pool.ExpectQuery("SELECT started_at FROM sync_log").
		WithArgs("fmr").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.LastSuccess(context.Background(), "fmr")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSyncLog_Complete(t *testing.T) {
	s, pool := newMockSyncLog(t)
	pool.ExpectExec("UPDATE sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.Complete(context.Background(), "some-id", &SyncResult{
		RowsSynced: 10,
		Metadata:   map[string]any{"year": 2025},
	})
	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestSyncLog_Fail(t *testing.T) {
	s, pool := newMockSyncLog(t)
	pool.ExpectExec("UPDATE sync_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.Fail(context.Background(), "some-id", "download failed")
	require.NoError(t, err)
}

func TestSyncLog_ListAll(t *testing.T) {
	s, pool := newMockSyncLog(t)
	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(time.Minute)
	pool.ExpectQuery("SELECT id, dataset, status").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "dataset", "status", "started_at", "completed_at", "rows_synced", "error", "metadata"}).
			AddRow("id-1", "fmr", "complete", started, &completed, int64(3100), (*string)(nil), []byte(`{"year":2025}`)).
			AddRow("id-2", "safmr", "failed", started, &completed, int64(0), strp("timeout"), []byte(nil)))

	entries, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "fmr", entries[0].Dataset)
	assert.Equal(t, int64(3100), entries[0].RowsSynced)
	assert.Equal(t, float64(2025), entries[0].Metadata["year"])
	assert.Equal(t, "failed", entries[1].Status)
	assert.Equal(t, "timeout", entries[1].Error)
}

func strp(s string) *string { return &s }
