// Package params resolves calculator assumptions from stored market data,
// overlaying county tax rates and the latest observed mortgage rate on top
// of the configured presets.
package params

import (
	"context"

	"go.uber.org/zap"

	"github.com/rentbench/fmr-cli/internal/calc"
	"github.com/rentbench/fmr-cli/internal/store"
)

// Resolver fills calc.Assumptions from the store. Missing data falls back
// to the base presets, so a partially ingested database still calculates.
type Resolver struct {
	store store.Store
	base  calc.Assumptions
}

// NewResolver creates a resolver over the given base assumptions.
func NewResolver(st store.Store, base calc.Assumptions) *Resolver {
	return &Resolver{store: st, base: base}
}

// Base returns the unresolved assumptions.
func (r *Resolver) Base() calc.Assumptions {
	return r.base
}

// ForCounty returns assumptions with the county's property tax rate and the
// latest mortgage rate applied. An empty countyFIPS skips the tax lookup.
func (r *Resolver) ForCounty(ctx context.Context, countyFIPS string) (calc.Assumptions, error) {
	a := r.base

	if countyFIPS != "" {
		rate, ok, err := r.store.TaxRate(ctx, countyFIPS)
		if err != nil {
			return a, err
		}
		if ok {
			a.PropertyTaxRateAnnualPct = rate
		} else {
			zap.L().Debug("params: no tax rate for county, using preset",
				zap.String("county_fips", countyFIPS),
				zap.Float64("preset_pct", a.PropertyTaxRateAnnualPct))
		}
	}

	rate, ok, err := r.store.LatestMortgageRate(ctx)
	if err != nil {
		return a, err
	}
	if ok {
		a.InterestRateAnnualPct = rate
	}

	return a, nil
}
