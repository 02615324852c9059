package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rentbench/fmr-cli/internal/config"
	"github.com/rentbench/fmr-cli/internal/db"
	"github.com/rentbench/fmr-cli/internal/fetcher"
)

// MortgageRate syncs the weekly 30-year fixed mortgage average from FRED.
// The most recent observation seeds the calculator's interest rate.
type MortgageRate struct {
	cfg *config.Config
}

func (d *MortgageRate) Name() string     { return "mortgage_rate" }
func (d *MortgageRate) Table() string    { return "mortgage_rate" }
func (d *MortgageRate) Cadence() Cadence { return Weekly }

func (d *MortgageRate) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return WeeklySchedule(now, lastSync)
}

// mortgageSeries is Freddie Mac's 30-year fixed average as published on FRED.
const mortgageSeries = "MORTGAGE30US"

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

func (d *MortgageRate) Sync(ctx context.Context, pool db.Pool, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	if d.cfg.Ingest.FREDKey == "" {
		return nil, eris.New("mortgage_rate: ingest.fred_api_key not configured")
	}
	log.Info("syncing mortgage rates", zap.String("series", mortgageSeries))

	url := fmt.Sprintf("https://api.stlouisfed.org/fred/series/observations?series_id=%s&api_key=%s&file_type=json&sort_order=desc&limit=120",
		mortgageSeries, d.cfg.Ingest.FREDKey)

	body, err := f.Download(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "mortgage_rate: fetch series")
	}
	data, err := io.ReadAll(body)
	body.Close() //nolint:errcheck
	if err != nil {
		return nil, eris.Wrap(err, "mortgage_rate: read response")
	}

	var resp fredResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, eris.Wrap(err, "mortgage_rate: decode response")
	}

	var upsertRows [][]any
	for _, obs := range resp.Observations {
		if obs.Value == "." {
			continue
		}
		upsertRows = append(upsertRows, []any{
			obs.Date,
			parseFloat64Or(obs.Value, 0),
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        d.Table(),
		Columns:      []string{"observed_on", "rate_pct"},
		ConflictKeys: []string{"observed_on"},
	}, upsertRows)
	if err != nil {
		return nil, eris.Wrap(err, "mortgage_rate: upsert")
	}

	log.Info("mortgage rate sync complete", zap.Int64("rows", n))
	return &SyncResult{RowsSynced: n}, nil
}
