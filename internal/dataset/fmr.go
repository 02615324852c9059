package dataset

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rentbench/fmr-cli/internal/config"
	"github.com/rentbench/fmr-cli/internal/db"
	"github.com/rentbench/fmr-cli/internal/fetcher"
)

// FMR syncs the county-level Fair Market Rent workbook published by HUD
// each fiscal year.
type FMR struct {
	cfg *config.Config
}

func (d *FMR) Name() string     { return "fmr" }
func (d *FMR) Table() string    { return "fmr_county" }
func (d *FMR) Cadence() Cadence { return Annual }

func (d *FMR) ShouldRun(now time.Time, lastSync *time.Time) bool {
	// FMRs for the next fiscal year publish in late August or September.
	return AnnualAfter(now, lastSync, time.September)
}

func (d *FMR) year() int {
	if d.cfg.Ingest.Year != 0 {
		return d.cfg.Ingest.Year
	}
	return FiscalYear(time.Now().UTC())
}

func (d *FMR) Sync(ctx context.Context, pool db.Pool, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	year := d.year()
	log.Info("syncing county FMRs", zap.Int("year", year), zap.String("url", d.cfg.Ingest.FMRURL))

	path := filepath.Join(tempDir, "fmr.xlsx")
	if _, err := f.DownloadToFile(ctx, d.cfg.Ingest.FMRURL, path); err != nil {
		return nil, eris.Wrap(err, "fmr: download workbook")
	}

	rows, err := fetcher.ReadXLSX(path)
	if err != nil {
		return nil, eris.Wrap(err, "fmr: read workbook")
	}
	if len(rows) < 2 {
		return nil, eris.New("fmr: workbook has no data rows")
	}

	upsertRows := countyWorkbookRows(rows, year)

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        d.Table(),
		Columns:      fmrCountyColumns,
		ConflictKeys: []string{"year", "county_fips"},
	}, upsertRows)
	if err != nil {
		return nil, eris.Wrap(err, "fmr: upsert")
	}

	log.Info("fmr sync complete", zap.Int64("rows", n))
	return &SyncResult{
		RowsSynced: n,
		Metadata:   map[string]any{"year": year},
	}, nil
}

var fmrCountyColumns = []string{"year", "state_fips", "county_fips", "county_name", "state", "br0", "br1", "br2", "br3", "br4"}

// countyWorkbookRows converts the rows of a county FMR workbook, header
// first, into fmr_county upsert rows for the given fiscal year.
func countyWorkbookRows(rows [][]string, year int) [][]any {
	colIdx := mapColumnsNormalized(rows[0])

	var out [][]any
	for _, rec := range rows[1:] {
		fips := countyFIPS(firstNonEmpty(rec, colIdx, "fips", "fips2010", "fips code"))
		if len(fips) < 5 {
			continue
		}
		state := firstNonEmpty(rec, colIdx, "stusps", "state_alpha", "state")
		name := firstNonEmpty(rec, colIdx, "countyname", "county name", "county")
		if name == "" {
			continue
		}

		out = append(out, []any{
			year,
			fips[:2],
			fips,
			name,
			state,
			parseIntPtr(getColN(rec, colIdx, "fmr_0")),
			parseIntPtr(getColN(rec, colIdx, "fmr_1")),
			parseIntPtr(getColN(rec, colIdx, "fmr_2")),
			parseIntPtr(getColN(rec, colIdx, "fmr_3")),
			parseIntPtr(getColN(rec, colIdx, "fmr_4")),
		})
	}
	return out
}
