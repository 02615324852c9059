// Package lookup resolves FMR/SAFMR figures for ZIP, county, city, and
// address queries, applying the ZIP-to-county fallback and per-ZIP
// aggregation rules.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rentbench/fmr-cli/internal/cache"
	"github.com/rentbench/fmr-cli/internal/model"
	"github.com/rentbench/fmr-cli/internal/rent"
	"github.com/rentbench/fmr-cli/internal/store"
)

// ErrNotFound is returned when no FMR data exists for the query.
var ErrNotFound = errors.New("lookup: no rent data for query")

// ErrNoGeocoder is returned for address queries when geocoding is not
// configured.
var ErrNoGeocoder = errors.New("lookup: geocoding is not configured")

// Geocoder resolves a free-form address to a ZIP and county FIPS. Either
// return value may be empty when the geocoder could not determine it.
type Geocoder interface {
	Locate(ctx context.Context, address string) (zip, countyFIPS string, err error)
}

// ZipFigure is the per-ZIP breakdown inside a county or city result.
type ZipFigure struct {
	Zip    string           `json:"zip"`
	Source model.RentSource `json:"source"`
	rent.Resolution
}

// Result is a resolved rent lookup.
type Result struct {
	Query         string           `json:"query"`
	Year          int              `json:"year"`
	Source        model.RentSource `json:"source"`
	SAFMRMandated bool             `json:"safmr_mandated"`
	County        *model.ZipCounty `json:"county,omitempty"`
	rent.Resolution
	Zips    []ZipFigure       `json:"zip_fmr_data,omitempty"`
	History []model.YearRents `json:"history,omitempty"`
}

// Service resolves rent queries against the store, with an optional Redis
// response cache and an optional geocoder for address queries.
type Service struct {
	store    store.Store
	years    *YearCache
	cache    *cache.Redis
	geocoder Geocoder
}

// New creates a lookup service. The cache and geocoder may be nil.
func New(st store.Store, years *YearCache, c *cache.Redis, g Geocoder) *Service {
	return &Service{store: st, years: years, cache: c, geocoder: g}
}

// ByZip resolves a single ZIP: the SAFMR figure when one exists, otherwise
// the FMR of the ZIP's dominant county from the crosswalk.
func (s *Service) ByZip(ctx context.Context, zip string) (*Result, error) {
	year, err := s.latestYear(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("fmr:zip:%s:%d", zip, year)
	if res, ok := s.cached(ctx, key); ok {
		return res, nil
	}

	res := &Result{Query: zip, Year: year}

	var fmr model.BedroomRents
	zipRec, err := s.store.ZipFMR(ctx, zip, year)
	if err != nil {
		return nil, err
	}
	switch {
	case zipRec != nil:
		res.Source = model.SourceSAFMR
		fmr = zipRec.Rents
		mandated, err := s.store.SAFMRMandated(ctx, zipRec.AreaCode)
		if err != nil {
			return nil, err
		}
		res.SAFMRMandated = mandated
	default:
		// No ZIP-level figure: fall back to the county benchmark.
		county, err := s.store.CountyForZip(ctx, zip)
		if err != nil {
			return nil, err
		}
		if county == nil {
			return nil, ErrNotFound
		}
		res.County = county
		countyRec, err := s.store.CountyFMR(ctx, county.CountyFIPS, year)
		if err != nil {
			return nil, err
		}
		if countyRec == nil {
			return nil, ErrNotFound
		}
		res.Source = model.SourceCounty
		fmr = countyRec.Rents
	}

	if res.County == nil {
		// The county is informational for SAFMR hits (tax rates, display).
		if county, err := s.store.CountyForZip(ctx, zip); err == nil {
			res.County = county
		}
	}

	market, err := s.store.MarketRent(ctx, zip)
	if err != nil {
		return nil, err
	}
	var marketRents model.BedroomRents
	if market != nil {
		marketRents = market.Rents
	}
	res.Resolution = rent.Resolve(fmr, marketRents)

	if res.Source == model.SourceSAFMR {
		res.History, err = s.store.ZipFMRHistory(ctx, zip)
	} else {
		res.History, err = s.store.CountyFMRHistory(ctx, res.County.CountyFIPS)
	}
	if err != nil {
		return nil, err
	}

	s.storeCached(ctx, key, res)
	return res, nil
}

// ByCounty resolves a county FIPS code, aggregating its member ZIPs with
// the median rule and returning the per-ZIP breakdown.
func (s *Service) ByCounty(ctx context.Context, countyFIPS string) (*Result, error) {
	year, err := s.latestYear(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("fmr:county:%s:%d", countyFIPS, year)
	if res, ok := s.cached(ctx, key); ok {
		return res, nil
	}

	countyRec, err := s.store.CountyFMR(ctx, countyFIPS, year)
	if err != nil {
		return nil, err
	}
	if countyRec == nil {
		return nil, ErrNotFound
	}

	zips, err := s.store.ZipsForCounty(ctx, countyFIPS)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Query:  countyFIPS,
		Year:   year,
		Source: model.SourceCounty,
		County: &model.ZipCounty{
			CountyFIPS: countyRec.CountyFIPS,
			CountyName: countyRec.CountyName,
			State:      countyRec.State,
		},
	}

	var resolutions []rent.Resolution
	for _, zip := range zips {
		fig, err := s.zipFigure(ctx, zip, year, countyRec.Rents)
		if err != nil {
			return nil, err
		}
		res.Zips = append(res.Zips, *fig)
		resolutions = append(resolutions, fig.Resolution)
	}

	if len(resolutions) > 0 {
		res.Resolution = rent.MedianAcrossZIPs(resolutions)
	} else {
		res.Resolution = rent.Resolve(countyRec.Rents, model.BedroomRents{})
	}

	res.History, err = s.store.CountyFMRHistory(ctx, countyFIPS)
	if err != nil {
		return nil, err
	}

	s.storeCached(ctx, key, res)
	return res, nil
}

// ByCity resolves a USPS preferred city and two-letter state code,
// aggregating its member ZIPs with the median rule. ZIPs resolve
// independently: SAFMR when published, otherwise their own county FMR.
func (s *Service) ByCity(ctx context.Context, city, state string) (*Result, error) {
	year, err := s.latestYear(ctx)
	if err != nil {
		return nil, err
	}

	city = strings.TrimSpace(city)
	state = strings.ToUpper(strings.TrimSpace(state))

	key := fmt.Sprintf("fmr:city:%s:%s:%d", strings.ToLower(city), state, year)
	if res, ok := s.cached(ctx, key); ok {
		return res, nil
	}

	zips, err := s.store.ZipsForCity(ctx, city, state)
	if err != nil {
		return nil, err
	}
	if len(zips) == 0 {
		return nil, ErrNotFound
	}

	res := &Result{
		Query:  city + ", " + state,
		Year:   year,
		Source: model.SourceCounty,
	}

	var resolutions []rent.Resolution
	for _, zip := range zips {
		fig, err := s.zipFigureAuto(ctx, zip, year)
		if err != nil {
			return nil, err
		}
		res.Zips = append(res.Zips, *fig)
		resolutions = append(resolutions, fig.Resolution)
	}
	res.Resolution = rent.MedianAcrossZIPs(resolutions)

	s.storeCached(ctx, key, res)
	return res, nil
}

// ByCountyName resolves a county by name and two-letter state code.
func (s *Service) ByCountyName(ctx context.Context, name, state string) (*Result, error) {
	county, err := s.store.CountyByName(ctx, NormalizeCountyName(name), strings.ToUpper(strings.TrimSpace(state)))
	if err != nil {
		return nil, err
	}
	if county == nil {
		return nil, ErrNotFound
	}
	return s.ByCounty(ctx, county.CountyFIPS)
}

// ByAddress geocodes a free-form address and resolves its ZIP, falling
// back to the county when the geocoder returns no ZIP.
func (s *Service) ByAddress(ctx context.Context, address string) (*Result, error) {
	if s.geocoder == nil {
		return nil, ErrNoGeocoder
	}

	zip, countyFIPS, err := s.geocoder.Locate(ctx, address)
	if err != nil {
		return nil, eris.Wrapf(err, "lookup: geocode %q", address)
	}

	if zip != "" {
		res, err := s.ByZip(ctx, zip)
		if err == nil {
			res.Query = address
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	if countyFIPS == "" {
		return nil, ErrNotFound
	}
	res, err := s.ByCounty(ctx, countyFIPS)
	if err != nil {
		return nil, err
	}
	res.Query = address
	return res, nil
}

// zipFigure resolves one member ZIP of a county view. ZIPs without their
// own SAFMR row inherit the county figures.
func (s *Service) zipFigure(ctx context.Context, zip string, year int, countyRents model.BedroomRents) (*ZipFigure, error) {
	fig := &ZipFigure{Zip: zip, Source: model.SourceCounty}

	fmr := countyRents
	zipRec, err := s.store.ZipFMR(ctx, zip, year)
	if err != nil {
		return nil, err
	}
	if zipRec != nil {
		fig.Source = model.SourceSAFMR
		fmr = zipRec.Rents
	}

	market, err := s.store.MarketRent(ctx, zip)
	if err != nil {
		return nil, err
	}
	var marketRents model.BedroomRents
	if market != nil {
		marketRents = market.Rents
	}
	fig.Resolution = rent.Resolve(fmr, marketRents)
	return fig, nil
}

// zipFigureAuto resolves one ZIP of a city view, where member ZIPs may
// span counties. Missing SAFMR rows fall back to the ZIP's own county.
func (s *Service) zipFigureAuto(ctx context.Context, zip string, year int) (*ZipFigure, error) {
	fig := &ZipFigure{Zip: zip, Source: model.SourceCounty}

	var fmr model.BedroomRents
	zipRec, err := s.store.ZipFMR(ctx, zip, year)
	if err != nil {
		return nil, err
	}
	if zipRec != nil {
		fig.Source = model.SourceSAFMR
		fmr = zipRec.Rents
	} else {
		county, err := s.store.CountyForZip(ctx, zip)
		if err != nil {
			return nil, err
		}
		if county != nil {
			countyRec, err := s.store.CountyFMR(ctx, county.CountyFIPS, year)
			if err != nil {
				return nil, err
			}
			if countyRec != nil {
				fmr = countyRec.Rents
			}
		}
	}

	market, err := s.store.MarketRent(ctx, zip)
	if err != nil {
		return nil, err
	}
	var marketRents model.BedroomRents
	if market != nil {
		marketRents = market.Rents
	}
	fig.Resolution = rent.Resolve(fmr, marketRents)
	return fig, nil
}

func (s *Service) latestYear(ctx context.Context) (int, error) {
	if s.years == nil {
		return s.store.LatestYear(ctx)
	}
	return s.years.Get(ctx, s.store.LatestYear)
}

func (s *Service) cached(ctx context.Context, key string) (*Result, bool) {
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		zap.L().Warn("lookup: discarding bad cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &res, true
}

func (s *Service) storeCached(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		zap.L().Warn("lookup: cache write failed", zap.String("key", key), zap.Error(err))
	}
}

var countyTitle = cases.Title(language.AmericanEnglish)

// NormalizeCountyName title-cases a user-supplied county name and appends
// the "County" suffix when absent, matching the crosswalk naming.
func NormalizeCountyName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	name = countyTitle.String(strings.ToLower(name))
	if !strings.HasSuffix(strings.ToLower(name), "county") {
		name += " County"
	}
	return name
}
