package dataset

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rentbench/fmr-cli/internal/config"
	"github.com/rentbench/fmr-cli/internal/db"
	"github.com/rentbench/fmr-cli/internal/fetcher"
)

// TaxRate syncs effective property tax rates per county from a configured
// CSV feed. The calculator falls back to its preset when a county is absent.
type TaxRate struct {
	cfg *config.Config
}

func (d *TaxRate) Name() string     { return "taxrate" }
func (d *TaxRate) Table() string    { return "tax_rate" }
func (d *TaxRate) Cadence() Cadence { return Annual }

func (d *TaxRate) ShouldRun(now time.Time, lastSync *time.Time) bool {
	// County assessor data consolidates over the spring.
	return AnnualAfter(now, lastSync, time.June)
}

func (d *TaxRate) Sync(ctx context.Context, pool db.Pool, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	if d.cfg.Ingest.TaxRateURL == "" {
		return nil, eris.New("taxrate: ingest.tax_rate_url not configured")
	}
	log.Info("syncing property tax rates", zap.String("url", d.cfg.Ingest.TaxRateURL))

	body, err := f.Download(ctx, d.cfg.Ingest.TaxRateURL)
	if err != nil {
		return nil, eris.Wrap(err, "taxrate: download feed")
	}
	defer body.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, body, fetcher.CSVOptions{
		Header: headerCh,
		Trim:   true,
	})

	var colIdx map[string]int
	select {
	case header := <-headerCh:
		colIdx = mapColumnsNormalized(header)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var upsertRows [][]any
	for rec := range rowCh {
		fips := countyFIPS(firstNonEmpty(rec, colIdx, "countyfips", "fips", "geoid"))
		if len(fips) != 5 {
			continue
		}
		rate := parseFloat64Or(firstNonEmpty(rec, colIdx, "annualpct", "taxrate", "effectiverate"), -1)
		if rate < 0 {
			continue
		}
		upsertRows = append(upsertRows, []any{fips, rate})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "taxrate: parse feed")
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        d.Table(),
		Columns:      []string{"county_fips", "annual_pct"},
		ConflictKeys: []string{"county_fips"},
	}, upsertRows)
	if err != nil {
		return nil, eris.Wrap(err, "taxrate: upsert")
	}

	log.Info("tax rate sync complete", zap.Int64("rows", n))
	return &SyncResult{RowsSynced: n}, nil
}
