package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/rentbench/fmr-cli/internal/db"
	"github.com/rentbench/fmr-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot lookup path.
var preparedStatements = map[string]string{
	"latest_year":    `SELECT MAX(year) FROM fmr_county`,
	"county_fmr":     `SELECT year, state_fips, county_fips, county_name, state, br0, br1, br2, br3, br4 FROM fmr_county WHERE county_fips = $1 AND year = $2`,
	"zip_fmr":        `SELECT year, zip, area_code, area_name, br0, br1, br2, br3, br4 FROM fmr_zip WHERE zip = $1 AND year = $2`,
	"county_for_zip": `SELECT zip, county_fips, county_name, state, res_ratio FROM zip_county WHERE zip = $1 ORDER BY res_ratio DESC LIMIT 1`,
	"market_rent":    `SELECT zip, br0, br1, br2, br3, br4, scraped_at FROM market_rent WHERE zip = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (the ingest engine, the geocode cache).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS fmr_county (
	year        INT  NOT NULL,
	state_fips  TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	county_name TEXT NOT NULL,
	state       TEXT NOT NULL,
	br0 INT, br1 INT, br2 INT, br3 INT, br4 INT,
	PRIMARY KEY (year, county_fips)
);

CREATE TABLE IF NOT EXISTS fmr_zip (
	year      INT  NOT NULL,
	zip       TEXT NOT NULL,
	area_code TEXT NOT NULL DEFAULT '',
	area_name TEXT NOT NULL DEFAULT '',
	br0 INT, br1 INT, br2 INT, br3 INT, br4 INT,
	PRIMARY KEY (year, zip)
);

CREATE TABLE IF NOT EXISTS safmr_areas (
	area_code TEXT PRIMARY KEY,
	area_name TEXT NOT NULL,
	mandated  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS zip_county (
	zip         TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	county_name TEXT NOT NULL,
	state       TEXT NOT NULL,
	city        TEXT NOT NULL DEFAULT '',
	res_ratio   DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (zip, county_fips)
);

CREATE TABLE IF NOT EXISTS market_rent (
	zip TEXT PRIMARY KEY,
	br0 INT, br1 INT, br2 INT, br3 INT, br4 INT,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tax_rate (
	county_fips TEXT PRIMARY KEY,
	annual_pct  DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS mortgage_rate (
	observed_on DATE PRIMARY KEY,
	rate_pct    DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fmr_county_fips ON fmr_county(county_fips);
CREATE INDEX IF NOT EXISTS idx_fmr_zip_zip ON fmr_zip(zip);
CREATE INDEX IF NOT EXISTS idx_zip_county_county ON zip_county(county_fips);
CREATE INDEX IF NOT EXISTS idx_zip_county_name ON zip_county(LOWER(county_name), state);
CREATE INDEX IF NOT EXISTS idx_zip_county_city ON zip_county(LOWER(city), state);
`

// Migrate creates the lookup tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// LatestYear returns the most recent fiscal year with county FMR data.
func (s *PostgresStore) LatestYear(ctx context.Context) (int, error) {
	var year *int
	err := s.pool.QueryRow(ctx, `SELECT MAX(year) FROM fmr_county`).Scan(&year)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: latest year")
	}
	if year == nil {
		return 0, eris.New("postgres: no FMR data loaded")
	}
	return *year, nil
}

// CountyFMR returns the county-level FMR record for a fiscal year.
func (s *PostgresStore) CountyFMR(ctx context.Context, countyFIPS string, year int) (*model.CountyFMR, error) {
	var rec model.CountyFMR
	var brs [5]*int
	err := s.pool.QueryRow(ctx,
		`SELECT year, state_fips, county_fips, county_name, state, br0, br1, br2, br3, br4
		 FROM fmr_county WHERE county_fips = $1 AND year = $2`,
		countyFIPS, year,
	).Scan(&rec.Year, &rec.StateFIPS, &rec.CountyFIPS, &rec.CountyName, &rec.State,
		&brs[0], &brs[1], &brs[2], &brs[3], &brs[4])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: county fmr %s/%d", countyFIPS, year)
	}
	rec.Rents = rentsFromPtrs(brs)
	return &rec, nil
}

// ZipFMR returns the ZIP-level SAFMR record for a fiscal year.
func (s *PostgresStore) ZipFMR(ctx context.Context, zip string, year int) (*model.ZipFMR, error) {
	var rec model.ZipFMR
	var brs [5]*int
	err := s.pool.QueryRow(ctx,
		`SELECT year, zip, area_code, area_name, br0, br1, br2, br3, br4
		 FROM fmr_zip WHERE zip = $1 AND year = $2`,
		zip, year,
	).Scan(&rec.Year, &rec.Zip, &rec.AreaCode, &rec.AreaName,
		&brs[0], &brs[1], &brs[2], &brs[3], &brs[4])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: zip fmr %s/%d", zip, year)
	}
	rec.Rents = rentsFromPtrs(brs)
	return &rec, nil
}

// CountyFMRHistory returns per-year figures for a county, newest first.
func (s *PostgresStore) CountyFMRHistory(ctx context.Context, countyFIPS string) ([]model.YearRents, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year, br0, br1, br2, br3, br4 FROM fmr_county
		 WHERE county_fips = $1 ORDER BY year DESC`,
		countyFIPS,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: county history %s", countyFIPS)
	}
	defer rows.Close()
	return scanHistory(rows)
}

// ZipFMRHistory returns per-year SAFMR figures for a ZIP, newest first.
func (s *PostgresStore) ZipFMRHistory(ctx context.Context, zip string) ([]model.YearRents, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year, br0, br1, br2, br3, br4 FROM fmr_zip
		 WHERE zip = $1 ORDER BY year DESC`,
		zip,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: zip history %s", zip)
	}
	defer rows.Close()
	return scanHistory(rows)
}

// CountyForZip resolves a ZIP to its dominant county by residential ratio.
func (s *PostgresStore) CountyForZip(ctx context.Context, zip string) (*model.ZipCounty, error) {
	var rec model.ZipCounty
	err := s.pool.QueryRow(ctx,
		`SELECT zip, county_fips, county_name, state, res_ratio
		 FROM zip_county WHERE zip = $1 ORDER BY res_ratio DESC LIMIT 1`,
		zip,
	).Scan(&rec.Zip, &rec.CountyFIPS, &rec.CountyName, &rec.State, &rec.ResRatio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: county for zip %s", zip)
	}
	return &rec, nil
}

// ZipsForCounty returns the member ZIPs of a county from the crosswalk.
func (s *PostgresStore) ZipsForCounty(ctx context.Context, countyFIPS string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT zip FROM zip_county WHERE county_fips = $1 ORDER BY zip`,
		countyFIPS,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: zips for county %s", countyFIPS)
	}
	defer rows.Close()

	var zips []string
	for rows.Next() {
		var z string
		if err := rows.Scan(&z); err != nil {
			return nil, eris.Wrap(err, "postgres: scan zip")
		}
		zips = append(zips, z)
	}
	return zips, rows.Err()
}

// ZipsForCity returns the ZIPs whose USPS preferred city matches, scoped to
// a state.
func (s *PostgresStore) ZipsForCity(ctx context.Context, city, state string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT zip FROM zip_county
		 WHERE LOWER(city) = LOWER($1) AND state = $2 ORDER BY zip`,
		city, state,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: zips for city %s, %s", city, state)
	}
	defer rows.Close()

	var zips []string
	for rows.Next() {
		var z string
		if err := rows.Scan(&z); err != nil {
			return nil, eris.Wrap(err, "postgres: scan zip")
		}
		zips = append(zips, z)
	}
	return zips, rows.Err()
}

// CountyByName resolves a county by case-insensitive name and state code.
func (s *PostgresStore) CountyByName(ctx context.Context, name, state string) (*model.ZipCounty, error) {
	var rec model.ZipCounty
	err := s.pool.QueryRow(ctx,
		`SELECT zip, county_fips, county_name, state, res_ratio
		 FROM zip_county WHERE LOWER(county_name) = LOWER($1) AND state = $2
		 ORDER BY res_ratio DESC LIMIT 1`,
		name, state,
	).Scan(&rec.Zip, &rec.CountyFIPS, &rec.CountyName, &rec.State, &rec.ResRatio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: county by name %s, %s", name, state)
	}
	return &rec, nil
}

// SAFMRMandated reports whether an area is required to use Small Area FMRs.
func (s *PostgresStore) SAFMRMandated(ctx context.Context, areaCode string) (bool, error) {
	var mandated bool
	err := s.pool.QueryRow(ctx,
		`SELECT mandated FROM safmr_areas WHERE area_code = $1`,
		areaCode,
	).Scan(&mandated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, eris.Wrapf(err, "postgres: safmr area %s", areaCode)
	}
	return mandated, nil
}

// MarketRent returns scraped comparables for a ZIP.
func (s *PostgresStore) MarketRent(ctx context.Context, zip string) (*model.MarketRent, error) {
	var rec model.MarketRent
	var brs [5]*int
	err := s.pool.QueryRow(ctx,
		`SELECT zip, br0, br1, br2, br3, br4, scraped_at FROM market_rent WHERE zip = $1`,
		zip,
	).Scan(&rec.Zip, &brs[0], &brs[1], &brs[2], &brs[3], &brs[4], &rec.ScrapedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: market rent %s", zip)
	}
	rec.Rents = rentsFromPtrs(brs)
	return &rec, nil
}

// TaxRate returns the annual property tax rate for a county.
func (s *PostgresStore) TaxRate(ctx context.Context, countyFIPS string) (float64, bool, error) {
	var rate float64
	err := s.pool.QueryRow(ctx,
		`SELECT annual_pct FROM tax_rate WHERE county_fips = $1`,
		countyFIPS,
	).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, eris.Wrapf(err, "postgres: tax rate %s", countyFIPS)
	}
	return rate, true, nil
}

// LatestMortgageRate returns the most recent 30-year mortgage rate.
func (s *PostgresStore) LatestMortgageRate(ctx context.Context) (float64, bool, error) {
	var rate float64
	err := s.pool.QueryRow(ctx,
		`SELECT rate_pct FROM mortgage_rate ORDER BY observed_on DESC LIMIT 1`,
	).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, eris.Wrap(err, "postgres: latest mortgage rate")
	}
	return rate, true, nil
}

// rentsFromPtrs converts nullable column scans into BedroomRents.
func rentsFromPtrs(brs [5]*int) model.BedroomRents {
	var r model.BedroomRents
	for b, p := range brs {
		if p != nil {
			r.Set(b, *p)
		}
	}
	return r
}

// scanHistory collects (year, br0..br4) rows into a YearRents series.
func scanHistory(rows pgx.Rows) ([]model.YearRents, error) {
	var series []model.YearRents
	for rows.Next() {
		var yr model.YearRents
		var brs [5]*int
		if err := rows.Scan(&yr.Year, &brs[0], &brs[1], &brs[2], &brs[3], &brs[4]); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history row")
		}
		yr.Rents = rentsFromPtrs(brs)
		series = append(series, yr)
	}
	return series, rows.Err()
}
