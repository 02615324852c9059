package dataset

import (
	"context"
	"io"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentbench/fmr-cli/internal/config"
)

var marketRentCols = []string{"zip", "br0", "br1", "br2", "br3", "br4", "scraped_at"}

func TestMarketRent_Metadata(t *testing.T) {
	d := &MarketRent{cfg: &config.Config{}}
	assert.Equal(t, "marketrent", d.Name())
	assert.Equal(t, "market_rent", d.Table())
	assert.Equal(t, Weekly, d.Cadence())
}

func TestMarketRent_Sync(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	feed := "zip,br0,br1,br2,br3,br4\n" +
		"30301,1100,1220,1450,1600,2100\n" +
		"2101,1900,2100,2500,3100,3400\n" +
		"bogus,1,2,3,4,5\n"

	f := &stubFetcher{
		download: func(ctx context.Context, url string) (io.ReadCloser, error) {
			return csvBody(feed), nil
		},
	}

	expectBulkUpsert(pool, "market_rent", marketRentCols, 2)

	ds := &MarketRent{cfg: &config.Config{Ingest: config.IngestConfig{MarketRentURL: "https://example.test/rents.csv"}}}
	result, err := ds.Sync(context.Background(), pool, f, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RowsSynced)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestMarketRent_SyncNoURL(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	ds := &MarketRent{cfg: &config.Config{}}
	_, err = ds.Sync(context.Background(), pool, &stubFetcher{}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market_rent_url not configured")
}
