package lookup

import (
	"context"
	"strings"

	"github.com/rentbench/fmr-cli/internal/model"
)

// fakeStore is an in-memory store.Store for lookup tests.
type fakeStore struct {
	latestYear    int
	latestYearErr error
	countyFMRs    map[string]*model.CountyFMR // county_fips -> record (latest year)
	zipFMRs       map[string]*model.ZipFMR
	zipCounties   map[string]*model.ZipCounty
	countyZips    map[string][]string
	cityZips      map[string][]string // "city|state" -> zips
	countyNames   map[string]*model.ZipCounty // "name|state" -> county
	mandatedAreas map[string]bool
	marketRents   map[string]*model.MarketRent
	taxRates      map[string]float64
	mortgageRate  float64

	latestYearCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		latestYear:    2025,
		countyFMRs:    map[string]*model.CountyFMR{},
		zipFMRs:       map[string]*model.ZipFMR{},
		zipCounties:   map[string]*model.ZipCounty{},
		countyZips:    map[string][]string{},
		cityZips:      map[string][]string{},
		countyNames:   map[string]*model.ZipCounty{},
		mandatedAreas: map[string]bool{},
		marketRents:   map[string]*model.MarketRent{},
		taxRates:      map[string]float64{},
	}
}

func (f *fakeStore) LatestYear(ctx context.Context) (int, error) {
	f.latestYearCalls++
	if f.latestYearErr != nil {
		return 0, f.latestYearErr
	}
	return f.latestYear, nil
}

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
	return f.countyNames[name+"|"+state], nil
}

func (f *fakeStore) SAFMRMandated(ctx context.Context, areaCode string) (bool, error) {
	return f.mandatedAreas[areaCode], nil
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

// fakeGeocoder returns fixed coordinates for any address.
type fakeGeocoder struct {
	zip  string
	fips string
	err  error
}

func (g *fakeGeocoder) Locate(ctx context.Context, address string) (string, string, error) {
	return g.zip, g.fips, g.err
}
