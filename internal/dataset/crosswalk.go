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

// Crosswalk syncs the HUD-USPS ZIP-to-county crosswalk, used to resolve
// ZIPs without their own SAFMR to a county benchmark.
type Crosswalk struct {
	cfg *config.Config
}

func (d *Crosswalk) Name() string     { return "crosswalk" }
func (d *Crosswalk) Table() string    { return "zip_county" }
func (d *Crosswalk) Cadence() Cadence { return Quarterly }

func (d *Crosswalk) ShouldRun(now time.Time, lastSync *time.Time) bool {
	// HUD refreshes the crosswalk a few weeks after each quarter closes.
	return QuarterlyAfterDelay(now, lastSync, 45)
}

func (d *Crosswalk) Sync(ctx context.Context, pool db.Pool, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	log.Info("syncing ZIP-county crosswalk", zap.String("url", d.cfg.Ingest.CrosswalkURL))

	names, err := d.countyNames(ctx, pool)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(tempDir, "crosswalk.xlsx")
	if _, err := f.DownloadToFile(ctx, d.cfg.Ingest.CrosswalkURL, path); err != nil {
		return nil, eris.Wrap(err, "crosswalk: download workbook")
	}

	rows, err := fetcher.ReadXLSX(path)
	if err != nil {
		return nil, eris.Wrap(err, "crosswalk: read workbook")
	}
	if len(rows) < 2 {
		return nil, eris.New("crosswalk: workbook has no data rows")
	}

	colIdx := mapColumnsNormalized(rows[0])

	var upsertRows [][]any
	for _, rec := range rows[1:] {
		zip := padZip(firstNonEmpty(rec, colIdx, "zip", "zipcode"))
		fips := countyFIPS(firstNonEmpty(rec, colIdx, "county", "countyfips", "geoid"))
		if len(zip) != 5 || len(fips) != 5 {
			continue
		}

		upsertRows = append(upsertRows, []any{
			zip,
			fips,
			names[fips],
			firstNonEmpty(rec, colIdx, "uspszipprefstate", "state"),
			firstNonEmpty(rec, colIdx, "uspszipprefcity", "city"),
			parseFloat64Or(getColN(rec, colIdx, "res_ratio"), 0),
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        d.Table(),
		Columns:      []string{"zip", "county_fips", "county_name", "state", "city", "res_ratio"},
		ConflictKeys: []string{"zip", "county_fips"},
	}, upsertRows)
	if err != nil {
		return nil, eris.Wrap(err, "crosswalk: upsert")
	}

	log.Info("crosswalk sync complete", zap.Int64("rows", n))
	return &SyncResult{RowsSynced: n}, nil
}

// countyNames maps county FIPS to display names from the most recent FMR
// load. The crosswalk file carries only FIPS codes.
func (d *Crosswalk) countyNames(ctx context.Context, pool db.Pool) (map[string]string, error) {
	rows, err := pool.Query(ctx,
		`SELECT DISTINCT ON (county_fips) county_fips, county_name
		 FROM fmr_county ORDER BY county_fips, year DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "crosswalk: load county names")
	}
	defer rows.Close()

	names := map[string]string{}
	for rows.Next() {
		var fips, name string
		if err := rows.Scan(&fips, &name); err != nil {
			return nil, eris.Wrap(err, "crosswalk: scan county name")
		}
		names[fips] = name
	}
	return names, rows.Err()
}
