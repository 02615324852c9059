package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rentbench/fmr-cli/internal/config"
	"github.com/rentbench/fmr-cli/internal/db"
	"github.com/rentbench/fmr-cli/internal/fetcher"
)

// FMRHistory backfills prior-year county FMRs from HUD's FTP archive,
// where each fiscal year's release ships as a single zipped workbook.
type FMRHistory struct {
	cfg *config.Config
	ftp fetcher.Fetcher
}

// NewFMRHistory creates the history dataset with its own FTP fetcher;
// the archive is not reachable over HTTP.
func NewFMRHistory(cfg *config.Config) *FMRHistory {
	return &FMRHistory{
		cfg: cfg,
		ftp: fetcher.NewFTPFetcher(0),
	}
}

func (d *FMRHistory) Name() string     { return "fmr_history" }
func (d *FMRHistory) Table() string    { return "fmr_county" }
func (d *FMRHistory) Cadence() Cadence { return Annual }

// ShouldRun reports true only on the first sync. Archived releases are
// immutable, so there is nothing to refresh afterwards.
func (d *FMRHistory) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return lastSync == nil
}

func (d *FMRHistory) Sync(ctx context.Context, pool db.Pool, _ fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))

	tmpl := d.cfg.Ingest.FMRArchiveURL
	if tmpl == "" {
		return nil, eris.New("fmr_history: ingest.fmr_archive_url is not configured")
	}
	if !strings.Contains(tmpl, "%d") {
		return nil, eris.Errorf("fmr_history: archive url %q needs a %%d year placeholder", tmpl)
	}

	current := d.currentYear()
	back := d.cfg.Ingest.ArchiveYears
	if back <= 0 {
		back = 3
	}

	var total int64
	var years []int
	for year := current - 1; year >= current-back; year-- {
		n, err := d.syncYear(ctx, pool, tmpl, year, tempDir)
		if err != nil {
			return nil, err
		}
		log.Info("archived fmr year loaded", zap.Int("year", year), zap.Int64("rows", n))
		total += n
		years = append(years, year)
	}

	return &SyncResult{
		RowsSynced: total,
		Metadata:   map[string]any{"years": years},
	}, nil
}

func (d *FMRHistory) currentYear() int {
	if d.cfg.Ingest.Year != 0 {
		return d.cfg.Ingest.Year
	}
	return FiscalYear(time.Now().UTC())
}

func (d *FMRHistory) syncYear(ctx context.Context, pool db.Pool, tmpl string, year int, tempDir string) (int64, error) {
	url := fmt.Sprintf(tmpl, year)
	zipPath := filepath.Join(tempDir, fmt.Sprintf("fmr_%d.zip", year))

	if _, err := d.ftp.DownloadToFile(ctx, url, zipPath); err != nil {
		return 0, eris.Wrapf(err, "fmr_history: download %d archive", year)
	}

	workbook, err := fetcher.ExtractZIPSingle(zipPath, tempDir)
	if err != nil {
		return 0, eris.Wrapf(err, "fmr_history: extract %d archive", year)
	}

	rows, err := fetcher.ReadXLSX(workbook)
	if err != nil {
		return 0, eris.Wrapf(err, "fmr_history: read %d workbook", year)
	}
	if len(rows) < 2 {
		return 0, eris.Errorf("fmr_history: %d workbook has no data rows", year)
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        d.Table(),
		Columns:      fmrCountyColumns,
		ConflictKeys: []string{"year", "county_fips"},
	}, countyWorkbookRows(rows, year))
	if err != nil {
		return 0, eris.Wrapf(err, "fmr_history: upsert %d", year)
	}
	return n, nil
}
