package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rentbench/fmr-cli/internal/config"
	"github.com/rentbench/fmr-cli/internal/db"
	"github.com/rentbench/fmr-cli/internal/fetcher"
)

// SAFMR syncs the ZIP-level Small Area Fair Market Rent workbook and the
// metro areas it covers.
type SAFMR struct {
	cfg *config.Config
}

func (d *SAFMR) Name() string     { return "safmr" }
func (d *SAFMR) Table() string    { return "fmr_zip" }
func (d *SAFMR) Cadence() Cadence { return Annual }

func (d *SAFMR) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return AnnualAfter(now, lastSync, time.September)
}

// CBSA codes of the metro areas where the 2016 SAFMR rule makes voucher
// payment standards mandatory.
var mandatedCBSAs = []string{
	"12060", "16740", "16980", "17820", "19100", "22744", "23104", "23844",
	"25540", "27140", "27260", "33100", "35004", "35840", "37340", "37980",
	"38300", "40900", "41700", "41740", "45300", "47900", "48424", "49340",
}

func (d *SAFMR) year() int {
	if d.cfg.Ingest.Year != 0 {
		return d.cfg.Ingest.Year
	}
	return FiscalYear(time.Now().UTC())
}

func (d *SAFMR) Sync(ctx context.Context, pool db.Pool, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	year := d.year()
	log.Info("syncing SAFMRs", zap.Int("year", year), zap.String("url", d.cfg.Ingest.SAFMRURL))

	path := filepath.Join(tempDir, "safmr.xlsx")
	if _, err := f.DownloadToFile(ctx, d.cfg.Ingest.SAFMRURL, path); err != nil {
		return nil, eris.Wrap(err, "safmr: download workbook")
	}

	rows, err := fetcher.ReadXLSX(path)
	if err != nil {
		return nil, eris.Wrap(err, "safmr: read workbook")
	}
	if len(rows) < 2 {
		return nil, eris.New("safmr: workbook has no data rows")
	}

	colIdx := mapColumnsNormalized(rows[0])

	areas := map[string]string{} // area_code -> area_name
	var upsertRows [][]any
	for _, rec := range rows[1:] {
		zip := padZip(firstNonEmpty(rec, colIdx, "zipcode", "zip"))
		if len(zip) != 5 {
			continue
		}
		areaCode := firstNonEmpty(rec, colIdx, "hudareacode", "metrocode", "areacode")
		areaName := firstNonEmpty(rec, colIdx, "hudmetrofairmarketrentareaname", "hudareaname", "areaname")
		if areaCode != "" {
			areas[areaCode] = areaName
		}

		upsertRows = append(upsertRows, []any{
			year,
			zip,
			areaCode,
			areaName,
			parseIntPtr(firstNonEmpty(rec, colIdx, "safmr0br", "safmr_0", "safmr0")),
			parseIntPtr(firstNonEmpty(rec, colIdx, "safmr1br", "safmr_1", "safmr1")),
			parseIntPtr(firstNonEmpty(rec, colIdx, "safmr2br", "safmr_2", "safmr2")),
			parseIntPtr(firstNonEmpty(rec, colIdx, "safmr3br", "safmr_3", "safmr3")),
			parseIntPtr(firstNonEmpty(rec, colIdx, "safmr4br", "safmr_4", "safmr4")),
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        d.Table(),
		Columns:      []string{"year", "zip", "area_code", "area_name", "br0", "br1", "br2", "br3", "br4"},
		ConflictKeys: []string{"year", "zip"},
	}, upsertRows)
	if err != nil {
		return nil, eris.Wrap(err, "safmr: upsert zips")
	}

	areaRows := make([][]any, 0, len(areas))
	for code, name := range areas {
		areaRows = append(areaRows, []any{code, name, isMandated(code)})
	}
	if _, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "safmr_areas",
		Columns:      []string{"area_code", "area_name", "mandated"},
		ConflictKeys: []string{"area_code"},
	}, areaRows); err != nil {
		return nil, eris.Wrap(err, "safmr: upsert areas")
	}

	log.Info("safmr sync complete", zap.Int64("rows", n), zap.Int("areas", len(areas)))
	return &SyncResult{
		RowsSynced: n,
		Metadata:   map[string]any{"year": year, "areas": len(areas)},
	}, nil
}

// isMandated reports whether a HUD metro area code belongs to one of the
// mandatory SAFMR metros. Codes embed the CBSA number twice, as in
// "METRO12060M12060".
func isMandated(areaCode string) bool {
	for _, cbsa := range mandatedCBSAs {
		if areaCode == fmt.Sprintf("METRO%sM%s", cbsa, cbsa) {
			return true
		}
	}
	return false
}
