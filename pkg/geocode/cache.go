package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const cacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	address      TEXT NOT NULL,
	zip          TEXT NOT NULL DEFAULT '',
	county_fips  TEXT NOT NULL DEFAULT '',
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// cachedLocation is a previously resolved address, including non-matches
// so repeated misses skip the API.
type cachedLocation struct {
	Zip        string
	CountyFIPS string
}

// Migrate creates the geocode cache table. A no-op without a pool.
func (c *Client) Migrate(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	if _, err := c.pool.Exec(ctx, cacheMigration); err != nil {
		return eris.Wrap(err, "geocode: migrate cache")
	}
	return nil
}

// cacheKey returns SHA-256 hex of the normalized address.
func cacheKey(address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

func (c *Client) checkCache(ctx context.Context, key string) (*cachedLocation, bool) {
	if c.pool == nil {
		return nil, false
	}

	var loc cachedLocation
	row := c.pool.QueryRow(ctx,
		"SELECT zip, county_fips FROM geocode_cache WHERE address_hash = $1", key)
	if err := row.Scan(&loc.Zip, &loc.CountyFIPS); err != nil {
		return nil, false
	}

	zap.L().Debug("geocode cache hit", zap.String("key", key[:12]))
	return &loc, true
}

func (c *Client) storeCache(ctx context.Context, key, address, zip, countyFIPS string) {
	if c.pool == nil {
		return
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address_hash, address, zip, county_fips, cached_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (address_hash) DO UPDATE SET
			zip = EXCLUDED.zip,
			county_fips = EXCLUDED.county_fips,
			cached_at = now()`,
		key, address, zip, countyFIPS,
	)
	if err != nil {
		zap.L().Warn("geocode: cache write failed", zap.Error(err))
	}
}
