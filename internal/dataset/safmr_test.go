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

var safmrCols = []string{"year", "zip", "area_code", "area_name", "br0", "br1", "br2", "br3", "br4"}
var areaCols = []string{"area_code", "area_name", "mandated"}

func TestSAFMR_Metadata(t *testing.T) {
	d := &SAFMR{cfg: &config.Config{}}
	assert.Equal(t, "safmr", d.Name())
	assert.Equal(t, "fmr_zip", d.Table())
	assert.Equal(t, Annual, d.Cadence())
}

func TestSAFMR_Sync(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	f := &stubFetcher{
		downloadToFile: xlsxToFile(t, [][]string{
			{"ZIP Code", "HUD Area Code", "HUD Metro Fair Market Rent Area Name", "SAFMR 0BR", "SAFMR 1BR", "SAFMR 2BR", "SAFMR 3BR", "SAFMR 4BR"},
			{"30301", "METRO12060M12060", "Atlanta-Sandy Springs-Roswell, GA HUD Metro FMR Area", "1150", "1250", "1400", "1700", "2000"},
			{"2101", "METRO14460M14460", "Boston-Cambridge-Quincy, MA-NH HUD Metro FMR Area", "2010", "2230", "2700", "3370", "3640"},
		}),
	}

	expectBulkUpsert(pool, "fmr_zip", safmrCols, 2)
	expectBulkUpsert(pool, "safmr_areas", areaCols, 2)

	ds := &SAFMR{cfg: &config.Config{Ingest: config.IngestConfig{Year: 2025, SAFMRURL: "https://example.test/safmr.xlsx"}}}
	result, err := ds.Sync(context.Background(), pool, f, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RowsSynced)
	assert.Equal(t, 2, result.Metadata["areas"])
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestSAFMR_ShouldRun(t *testing.T) {
	d := &SAFMR{cfg: &config.Config{}}
	assert.True(t, d.ShouldRun(time.Now(), nil))
}

func TestIsMandated(t *testing.T) {
	// Atlanta and Dallas are mandatory SAFMR metros; Boston is not.
	assert.True(t, isMandated("METRO12060M12060"))
	assert.True(t, isMandated("METRO19100M19100"))
	assert.False(t, isMandated("METRO14460M14460"))
	assert.False(t, isMandated(""))
}
