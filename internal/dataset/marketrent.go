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

// MarketRent syncs observed asking rents per ZIP from a configured CSV
// feed. These cap the FMR figures during lookups.
type MarketRent struct {
	cfg *config.Config
}

func (d *MarketRent) Name() string     { return "marketrent" }
func (d *MarketRent) Table() string    { return "market_rent" }
func (d *MarketRent) Cadence() Cadence { return Weekly }

func (d *MarketRent) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return WeeklySchedule(now, lastSync)
}

func (d *MarketRent) Sync(ctx context.Context, pool db.Pool, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	if d.cfg.Ingest.MarketRentURL == "" {
		return nil, eris.New("marketrent: ingest.market_rent_url not configured")
	}
	log.Info("syncing market rents", zap.String("url", d.cfg.Ingest.MarketRentURL))

	body, err := f.Download(ctx, d.cfg.Ingest.MarketRentURL)
	if err != nil {
		return nil, eris.Wrap(err, "marketrent: download feed")
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

	scrapedAt := time.Now().UTC()
	var upsertRows [][]any
	for rec := range rowCh {
		zip := padZip(firstNonEmpty(rec, colIdx, "zip", "zipcode"))
		if len(zip) != 5 {
			continue
		}
		upsertRows = append(upsertRows, []any{
			zip,
			parseIntPtr(firstNonEmpty(rec, colIdx, "br0", "rent0", "0br", "studio")),
			parseIntPtr(firstNonEmpty(rec, colIdx, "br1", "rent1", "1br")),
			parseIntPtr(firstNonEmpty(rec, colIdx, "br2", "rent2", "2br")),
			parseIntPtr(firstNonEmpty(rec, colIdx, "br3", "rent3", "3br")),
			parseIntPtr(firstNonEmpty(rec, colIdx, "br4", "rent4", "4br")),
			scrapedAt,
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "marketrent: parse feed")
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        d.Table(),
		Columns:      []string{"zip", "br0", "br1", "br2", "br3", "br4", "scraped_at"},
		ConflictKeys: []string{"zip"},
	}, upsertRows)
	if err != nil {
		return nil, eris.Wrap(err, "marketrent: upsert")
	}

	log.Info("market rent sync complete", zap.Int64("rows", n))
	return &SyncResult{RowsSynced: n}, nil
}
