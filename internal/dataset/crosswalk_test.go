package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentbench/fmr-cli/internal/config"
)

var crosswalkCols = []string{"zip", "county_fips", "county_name", "state", "city", "res_ratio"}

func TestCrosswalk_Metadata(t *testing.T) {
	d := &Crosswalk{cfg: &config.Config{}}
	assert.Equal(t, "crosswalk", d.Name())
	assert.Equal(t, "zip_county", d.Table())
	assert.Equal(t, Quarterly, d.Cadence())
}

func TestCrosswalk_Sync(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT DISTINCT ON").
		WillReturnRows(pgxmock.NewRows([]string{"county_fips", "county_name"}).
			AddRow("13121", "Fulton County").
			AddRow("13089", "DeKalb County"))

	f := &stubFetcher{
		downloadToFile: xlsxToFile(t, [][]string{
			{"ZIP", "COUNTY", "RES_RATIO", "BUS_RATIO", "USPS_ZIP_PREF_CITY", "USPS_ZIP_PREF_STATE"},
			{"30301", "13121", "0.97", "0.9", "ATLANTA", "GA"},
			{"30301", "13089", "0.03", "0.1", "ATLANTA", "GA"},
			{"bad", "13121", "1.0", "1.0", "", "GA"},
		}),
	}

	expectBulkUpsert(pool, "zip_county", crosswalkCols, 2)

	ds := &Crosswalk{cfg: &config.Config{Ingest: config.IngestConfig{CrosswalkURL: "https://example.test/crosswalk.xlsx"}}}
	result, err := ds.Sync(context.Background(), pool, f, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RowsSynced)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestCrosswalk_ShouldRun(t *testing.T) {
	d := &Crosswalk{cfg: &config.Config{}}
	assert.True(t, d.ShouldRun(time.Now(), nil))

	// Synced after the latest refresh became available.
	now := time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2025, time.May, 18, 0, 0, 0, 0, time.UTC)
	assert.False(t, d.ShouldRun(now, &fresh))
}
