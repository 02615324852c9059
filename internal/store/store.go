// Package store persists HUD rent benchmarks and market data behind a
// driver-agnostic interface. Postgres is the canonical backend; SQLite
// serves read-only local deployments.
package store

import (
	"context"

	"github.com/rentbench/fmr-cli/internal/model"
)

// Store defines the persistence interface for rent lookups. Record getters
// return (nil, nil) when no row matches so callers can distinguish "no
// data" from a query failure.
type Store interface {
	// FMR benchmarks
	LatestYear(ctx context.Context) (int, error)
	CountyFMR(ctx context.Context, countyFIPS string, year int) (*model.CountyFMR, error)
	ZipFMR(ctx context.Context, zip string, year int) (*model.ZipFMR, error)
	CountyFMRHistory(ctx context.Context, countyFIPS string) ([]model.YearRents, error)
	ZipFMRHistory(ctx context.Context, zip string) ([]model.YearRents, error)

	// Geography
	CountyForZip(ctx context.Context, zip string) (*model.ZipCounty, error)
	ZipsForCounty(ctx context.Context, countyFIPS string) ([]string, error)
	ZipsForCity(ctx context.Context, city, state string) ([]string, error)
	CountyByName(ctx context.Context, name, state string) (*model.ZipCounty, error)
	SAFMRMandated(ctx context.Context, areaCode string) (bool, error)

	// Market data
	MarketRent(ctx context.Context, zip string) (*model.MarketRent, error)
	TaxRate(ctx context.Context, countyFIPS string) (float64, bool, error)
	LatestMortgageRate(ctx context.Context) (float64, bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
