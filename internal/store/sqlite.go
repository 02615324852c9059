package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rentbench/fmr-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It serves local
// deployments from a prebuilt database file; ingestion targets Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS fmr_county (
	year        INTEGER NOT NULL,
	state_fips  TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	county_name TEXT NOT NULL,
	state       TEXT NOT NULL,
	br0 INTEGER, br1 INTEGER, br2 INTEGER, br3 INTEGER, br4 INTEGER,
	PRIMARY KEY (year, county_fips)
);

CREATE TABLE IF NOT EXISTS fmr_zip (
	year      INTEGER NOT NULL,
	zip       TEXT NOT NULL,
	area_code TEXT NOT NULL DEFAULT '',
	area_name TEXT NOT NULL DEFAULT '',
	br0 INTEGER, br1 INTEGER, br2 INTEGER, br3 INTEGER, br4 INTEGER,
	PRIMARY KEY (year, zip)
);

CREATE TABLE IF NOT EXISTS safmr_areas (
	area_code TEXT PRIMARY KEY,
	area_name TEXT NOT NULL,
	mandated  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS zip_county (
	zip         TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	county_name TEXT NOT NULL,
	state       TEXT NOT NULL,
	city        TEXT NOT NULL DEFAULT '',
	res_ratio   REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (zip, county_fips)
);

CREATE TABLE IF NOT EXISTS market_rent (
	zip TEXT PRIMARY KEY,
	br0 INTEGER, br1 INTEGER, br2 INTEGER, br3 INTEGER, br4 INTEGER,
	scraped_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tax_rate (
	county_fips TEXT PRIMARY KEY,
	annual_pct  REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS mortgage_rate (
	observed_on TEXT PRIMARY KEY,
	rate_pct    REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fmr_county_fips ON fmr_county(county_fips);
CREATE INDEX IF NOT EXISTS idx_fmr_zip_zip ON fmr_zip(zip);
CREATE INDEX IF NOT EXISTS idx_zip_county_county ON zip_county(county_fips);
CREATE INDEX IF NOT EXISTS idx_zip_county_city ON zip_county(city, state);
`

// Migrate creates the lookup tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LatestYear returns the most recent fiscal year with county FMR data.
func (s *SQLiteStore) LatestYear(ctx context.Context) (int, error) {
	var year sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(year) FROM fmr_county`).Scan(&year)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: latest year")
	}
	if !year.Valid {
		return 0, eris.New("sqlite: no FMR data loaded")
	}
	return int(year.Int64), nil
}

// CountyFMR returns the county-level FMR record for a fiscal year.
func (s *SQLiteStore) CountyFMR(ctx context.Context, countyFIPS string, year int) (*model.CountyFMR, error) {
	var rec model.CountyFMR
	var brs [5]sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT year, state_fips, county_fips, county_name, state, br0, br1, br2, br3, br4
		 FROM fmr_county WHERE county_fips = ? AND year = ?`,
		countyFIPS, year,
	).Scan(&rec.Year, &rec.StateFIPS, &rec.CountyFIPS, &rec.CountyName, &rec.State,
		&brs[0], &brs[1], &brs[2], &brs[3], &brs[4])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: county fmr %s/%d", countyFIPS, year)
	}
	rec.Rents = rentsFromNulls(brs)
	return &rec, nil
}

// ZipFMR returns the ZIP-level SAFMR record for a fiscal year.
func (s *SQLiteStore) ZipFMR(ctx context.Context, zip string, year int) (*model.ZipFMR, error) {
	var rec model.ZipFMR
	var brs [5]sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT year, zip, area_code, area_name, br0, br1, br2, br3, br4
		 FROM fmr_zip WHERE zip = ? AND year = ?`,
		zip, year,
	).Scan(&rec.Year, &rec.Zip, &rec.AreaCode, &rec.AreaName,
		&brs[0], &brs[1], &brs[2], &brs[3], &brs[4])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: zip fmr %s/%d", zip, year)
	}
	rec.Rents = rentsFromNulls(brs)
	return &rec, nil
}

// CountyFMRHistory returns per-year figures for a county, newest first.
func (s *SQLiteStore) CountyFMRHistory(ctx context.Context, countyFIPS string) ([]model.YearRents, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year, br0, br1, br2, br3, br4 FROM fmr_county
		 WHERE county_fips = ? ORDER BY year DESC`,
		countyFIPS,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: county history %s", countyFIPS)
	}
	defer rows.Close()
	return scanSQLHistory(rows)
}

// ZipFMRHistory returns per-year SAFMR figures for a ZIP, newest first.
func (s *SQLiteStore) ZipFMRHistory(ctx context.Context, zip string) ([]model.YearRents, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year, br0, br1, br2, br3, br4 FROM fmr_zip
		 WHERE zip = ? ORDER BY year DESC`,
		zip,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: zip history %s", zip)
	}
	defer rows.Close()
	return scanSQLHistory(rows)
}

// CountyForZip resolves a ZIP to its dominant county by residential ratio.
func (s *SQLiteStore) CountyForZip(ctx context.Context, zip string) (*model.ZipCounty, error) {
	var rec model.ZipCounty
	err := s.db.QueryRowContext(ctx,
		`SELECT zip, county_fips, county_name, state, res_ratio
		 FROM zip_county WHERE zip = ? ORDER BY res_ratio DESC LIMIT 1`,
		zip,
	).Scan(&rec.Zip, &rec.CountyFIPS, &rec.CountyName, &rec.State, &rec.ResRatio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: county for zip %s", zip)
	}
	return &rec, nil
}

// ZipsForCounty returns the member ZIPs of a county from the crosswalk.
func (s *SQLiteStore) ZipsForCounty(ctx context.Context, countyFIPS string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT zip FROM zip_county WHERE county_fips = ? ORDER BY zip`,
		countyFIPS,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: zips for county %s", countyFIPS)
	}
	defer rows.Close()

	var zips []string
	for rows.Next() {
		var z string
		if err := rows.Scan(&z); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan zip")
		}
		zips = append(zips, z)
	}
	return zips, rows.Err()
}

// ZipsForCity returns the ZIPs whose USPS preferred city matches, scoped to
// a state.
func (s *SQLiteStore) ZipsForCity(ctx context.Context, city, state string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT zip FROM zip_county
		 WHERE LOWER(city) = LOWER(?) AND state = ? ORDER BY zip`,
		city, state,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: zips for city %s, %s", city, state)
	}
	defer rows.Close()

	var zips []string
	for rows.Next() {
		var z string
		if err := rows.Scan(&z); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan zip")
		}
		zips = append(zips, z)
	}
	return zips, rows.Err()
}

// CountyByName resolves a county by case-insensitive name and state code.
func (s *SQLiteStore) CountyByName(ctx context.Context, name, state string) (*model.ZipCounty, error) {
	var rec model.ZipCounty
	err := s.db.QueryRowContext(ctx,
		`SELECT zip, county_fips, county_name, state, res_ratio
		 FROM zip_county WHERE LOWER(county_name) = LOWER(?) AND state = ?
		 ORDER BY res_ratio DESC LIMIT 1`,
		name, state,
	).Scan(&rec.Zip, &rec.CountyFIPS, &rec.CountyName, &rec.State, &rec.ResRatio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: county by name %s, %s", name, state)
	}
	return &rec, nil
}

// SAFMRMandated reports whether an area is required to use Small Area FMRs.
func (s *SQLiteStore) SAFMRMandated(ctx context.Context, areaCode string) (bool, error) {
	var mandated bool
	err := s.db.QueryRowContext(ctx,
		`SELECT mandated FROM safmr_areas WHERE area_code = ?`,
		areaCode,
	).Scan(&mandated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, eris.Wrapf(err, "sqlite: safmr area %s", areaCode)
	}
	return mandated, nil
}

// MarketRent returns scraped comparables for a ZIP.
func (s *SQLiteStore) MarketRent(ctx context.Context, zip string) (*model.MarketRent, error) {
	var rec model.MarketRent
	var brs [5]sql.NullInt64
	var scrapedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT zip, br0, br1, br2, br3, br4, scraped_at FROM market_rent WHERE zip = ?`,
		zip,
	).Scan(&rec.Zip, &brs[0], &brs[1], &brs[2], &brs[3], &brs[4], &scrapedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: market rent %s", zip)
	}
	rec.Rents = rentsFromNulls(brs)
	if ts, err := time.Parse("2006-01-02 15:04:05", scrapedAt); err == nil {
		rec.ScrapedAt = ts
	}
	return &rec, nil
}

// TaxRate returns the annual property tax rate for a county.
func (s *SQLiteStore) TaxRate(ctx context.Context, countyFIPS string) (float64, bool, error) {
	var rate float64
	err := s.db.QueryRowContext(ctx,
		`SELECT annual_pct FROM tax_rate WHERE county_fips = ?`,
		countyFIPS,
	).Scan(&rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, eris.Wrapf(err, "sqlite: tax rate %s", countyFIPS)
	}
	return rate, true, nil
}

// LatestMortgageRate returns the most recent 30-year mortgage rate.
func (s *SQLiteStore) LatestMortgageRate(ctx context.Context) (float64, bool, error) {
	var rate float64
	err := s.db.QueryRowContext(ctx,
		`SELECT rate_pct FROM mortgage_rate ORDER BY observed_on DESC LIMIT 1`,
	).Scan(&rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, eris.Wrap(err, "sqlite: latest mortgage rate")
	}
	return rate, true, nil
}

// rentsFromNulls converts nullable column scans into BedroomRents.
func rentsFromNulls(brs [5]sql.NullInt64) model.BedroomRents {
	var r model.BedroomRents
	for b, v := range brs {
		if v.Valid {
			r.Set(b, int(v.Int64))
		}
	}
	return r
}

// scanSQLHistory collects (year, br0..br4) rows into a YearRents series.
func scanSQLHistory(rows *sql.Rows) ([]model.YearRents, error) {
	var series []model.YearRents
	for rows.Next() {
		var yr model.YearRents
		var brs [5]sql.NullInt64
		if err := rows.Scan(&yr.Year, &brs[0], &brs[1], &brs[2], &brs[3], &brs[4]); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history row")
		}
		yr.Rents = rentsFromNulls(brs)
		series = append(series, yr)
	}
	return series, rows.Err()
}
