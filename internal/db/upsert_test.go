package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "fmr_county",
		Columns:      []string{"year", "county_fips"},
		ConflictKeys: []string{"year", "county_fips"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "fmr_county",
		ConflictKeys: []string{"year"},
	}, [][]any{{2025, "13121"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:   "fmr_county",
		Columns: []string{"year", "county_fips"},
	}, [][]any{{2025, "13121"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_FirstLoadCopiesDirect(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	pool.ExpectCopyFrom(pgx.Identifier{"fmr_county"}, []string{"year", "county_fips"}).
		WillReturnResult(2)

	n, err := BulkUpsert(context.Background(), pool, UpsertConfig{
		Table:        "fmr_county",
		Columns:      []string{"year", "county_fips"},
		ConflictKeys: []string{"year", "county_fips"},
	}, [][]any{{2025, "13121"}, {2025, "36061"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestBulkUpsert_ExistingRowsTakeConflictPath(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	pool.ExpectBegin()
	pool.ExpectExec("CREATE TEMP TABLE").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	pool.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_fmr_county"}, []string{"year", "county_fips", "br2"}).
		WillReturnResult(1)
	pool.ExpectExec("INSERT INTO").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCommit()

	n, err := BulkUpsert(context.Background(), pool, UpsertConfig{
		Table:        "fmr_county",
		Columns:      []string{"year", "county_fips", "br2"},
		ConflictKeys: []string{"year", "county_fips"},
	}, [][]any{{2025, "13121", 1350}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fmr_zip", `"fmr_zip"`},
		{"public.fmr_county", `"public"."fmr_county"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"zip", "br0", "br1"})
	assert.Equal(t, `"zip", "br0", "br1"`, result)
}
