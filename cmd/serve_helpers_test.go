package main

import (
	"context"
	"strings"
	"time"

	"github.com/rentbench/fmr-cli/internal/calc"
	"github.com/rentbench/fmr-cli/internal/lookup"
	"github.com/rentbench/fmr-cli/internal/model"
	"github.com/rentbench/fmr-cli/internal/params"
)

// fakeStore is an in-memory store.Store for handler and scenario tests.
type fakeStore struct {
	latestYear   int
	countyFMRs   map[string]*model.CountyFMR
	zipFMRs      map[string]*model.ZipFMR
	zipCounties  map[string]*model.ZipCounty
	countyZips   map[string][]string
	cityZips     map[string][]string
	mandated     map[string]bool
	marketRents  map[string]*model.MarketRent
	taxRates     map[string]float64
	mortgageRate float64
}

// seededStore returns a store with one SAFMR ZIP inside Fulton County, GA.
func seededStore() *fakeStore {
	return &fakeStore{
		latestYear: 2025,
		countyFMRs: map[string]*model.CountyFMR{
			"13121": {
				Year: 2025, StateFIPS: "13", CountyFIPS: "13121",
				CountyName: "Fulton County", State: "GA",
				Rents: model.Rents(1100, 1200, 1350, 1650, 1950),
			},
		},
		zipFMRs: map[string]*model.ZipFMR{
			"30301": {
				Year: 2025, Zip: "30301",
				AreaCode: "METRO12060M12060", AreaName: "Atlanta HUD Metro FMR Area",
				Rents: model.Rents(1150, 1250, 1400, 1700, 2000),
			},
		},
		zipCounties: map[string]*model.ZipCounty{
			"30301": {Zip: "30301", CountyFIPS: "13121", CountyName: "Fulton County", State: "GA", ResRatio: 0.97},
		},
		countyZips: map[string][]string{"13121": {"30301"}},
		cityZips:   map[string][]string{"atlanta|GA": {"30301"}},
		mandated:   map[string]bool{"METRO12060M12060": true},
		marketRents: map[string]*model.MarketRent{
			"30301": {Zip: "30301", Rents: model.Rents(1100, 1220, 1450, 1600, 2100), ScrapedAt: time.Now()},
		},
		taxRates:     map[string]float64{"13121": 1.04},
		mortgageRate: 6.2,
	}
}

func (f *fakeStore) LatestYear(ctx context.Context) (int, error) { return f.latestYear, nil }

func (f *fakeStore) CountyFMR(ctx context.Context, fips string, year int) (*model.CountyFMR, error) {
	rec := f.countyFMRs[fips]
	if rec == nil || rec.Year != year {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeStore) ZipFMR(ctx context.Context, zip string, year int) (*model.ZipFMR, error) {
	rec := f.zipFMRs[zip]
	if rec == nil || rec.Year != year {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeStore) CountyFMRHistory(ctx context.Context, fips string) ([]model.YearRents, error) {
	if rec := f.countyFMRs[fips]; rec != nil {
		return []model.YearRents{{Year: rec.Year, Rents: rec.Rents}}, nil
	}
	return nil, nil
}

func (f *fakeStore) ZipFMRHistory(ctx context.Context, zip string) ([]model.YearRents, error) {
	if rec := f.zipFMRs[zip]; rec != nil {
		return []model.YearRents{{Year: rec.Year, Rents: rec.Rents}}, nil
	}
	return nil, nil
}

func (f *fakeStore) CountyForZip(ctx context.Context, zip string) (*model.ZipCounty, error) {
	return f.zipCounties[zip], nil
}

func (f *fakeStore) ZipsForCounty(ctx context.Context, fips string) ([]string, error) {
	return f.countyZips[fips], nil
}

func (f *fakeStore) ZipsForCity(ctx context.Context, city, state string) ([]string, error) {
	return f.cityZips[strings.ToLower(city)+"|"+state], nil
}

func (f *fakeStore) CountyByName(ctx context.Context, name, state string) (*model.ZipCounty, error) {
	for _, c := range f.zipCounties {
		if c.CountyName == name && c.State == state {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SAFMRMandated(ctx context.Context, areaCode string) (bool, error) {
	return f.mandated[areaCode], nil
}

func (f *fakeStore) MarketRent(ctx context.Context, zip string) (*model.MarketRent, error) {
	return f.marketRents[zip], nil
}

func (f *fakeStore) TaxRate(ctx context.Context, fips string) (float64, bool, error) {
	rate, ok := f.taxRates[fips]
	return rate, ok, nil
}

func (f *fakeStore) LatestMortgageRate(ctx context.Context) (float64, bool, error) {
	return f.mortgageRate, f.mortgageRate != 0, nil
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

// newTestEnv builds a lookup environment over the seeded fake store, with
// no Redis cache and no geocoder.
func newTestEnv() *lookupEnv {
	fs := seededStore()
	return &lookupEnv{
		store:   fs,
		svc:     lookup.New(fs, lookup.NewYearCache(time.Hour), nil, nil),
		resolve: params.NewResolver(fs, calc.DefaultAssumptions()),
	}
}
