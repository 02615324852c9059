package dataset

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func ptr(t time.Time) *time.Time { return &t }

// stubFetcher implements fetcher.Fetcher with function fields.
type stubFetcher struct {
	download       func(ctx context.Context, url string) (io.ReadCloser, error)
	downloadToFile func(ctx context.Context, url, path string) (int64, error)
}

func (s *stubFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	if s.download == nil {
		return nil, fmt.Errorf("unexpected Download(%s)", url)
	}
	return s.download(ctx, url)
}

func (s *stubFetcher) DownloadToFile(ctx context.Context, url, path string) (int64, error) {
	if s.downloadToFile == nil {
		return 0, fmt.Errorf("unexpected DownloadToFile(%s)", url)
	}
	return s.downloadToFile(ctx, url, path)
}

// writeTestXLSX creates a single-sheet workbook at path.
func writeTestXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	require.NoError(t, f.Save(path))
}

// xlsxToFile returns a downloadToFile stub that writes the workbook to the
// requested path.
func xlsxToFile(t *testing.T, rows [][]string) func(context.Context, string, string) (int64, error) {
	t.Helper()
	return func(_ context.Context, _ string, path string) (int64, error) {
		writeTestXLSX(t, path, rows)
		return 1, nil
	}
}

func csvBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

// expectBulkUpsert sets up pgxmock expectations for a db.BulkUpsert call
// against a table that already holds rows: existence check -> Begin ->
// CREATE TEMP TABLE -> COPY -> INSERT ON CONFLICT -> Commit.
func expectBulkUpsert(m pgxmock.PgxPoolIface, table string, cols []string, n int64) {
	tempTable := fmt.Sprintf("_tmp_upsert_%s", strings.ReplaceAll(table, ".", "_"))
	m.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	m.ExpectBegin()
	m.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	m.ExpectCopyFrom(pgx.Identifier{tempTable}, cols).WillReturnResult(n)
	m.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", n))
	m.ExpectCommit()
}
