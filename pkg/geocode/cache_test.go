package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Normalizes(t *testing.T) {
	a := cacheKey("123 Main St, Atlanta, GA")
	b := cacheKey("  123   MAIN st,  Atlanta, ga ")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, cacheKey("124 Main St, Atlanta, GA"))
}

func TestLocate_CacheHit(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("API must not be called on a cache hit")
	}))
	defer srv.Close()

	pool.ExpectQuery("SELECT zip, county_fips FROM geocode_cache").
		WithArgs(cacheKey("123 Main St, Atlanta, GA")).
		WillReturnRows(pgxmock.NewRows([]string{"zip", "county_fips"}).AddRow("30301", "13121"))

	c := New(srv.URL, pool)
	zip, fips, err := c.Locate(context.Background(), "123 Main St, Atlanta, GA")
	require.NoError(t, err)
	assert.Equal(t, "30301", zip)
	assert.Equal(t, "13121", fips)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestLocate_CacheMissStores(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, matchResponse("30301", "13121"))
	}))
	defer srv.Close()

	addr := "123 Main St, Atlanta, GA"
	pool.ExpectQuery("SELECT zip, county_fips FROM geocode_cache").
		WithArgs(cacheKey(addr)).
		WillReturnError(fmt.Errorf("no rows in result set"))
	pool.ExpectExec("INSERT INTO geocode_cache").
		WithArgs(cacheKey(addr), addr, "30301", "13121").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c := New(srv.URL, pool)
	zip, fips, err := c.Locate(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, "30301", zip)
	assert.Equal(t, "13121", fips)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestMigrate_NilPool(t *testing.T) {
	c := New("", nil)
	assert.NoError(t, c.Migrate(context.Background()))
}

func TestMigrate(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectExec("CREATE TABLE IF NOT EXISTS geocode_cache").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	c := New("", pool)
	require.NoError(t, c.Migrate(context.Background()))
	assert.NoError(t, pool.ExpectationsWereMet())
}
