// Package rent resolves effective rents from government benchmarks and
// market comparables, and aggregates figures across ZIPs.
package rent

import (
	"github.com/rentbench/fmr-cli/internal/model"
)

// Resolution is the per-ZIP outcome of comparing HUD figures against
// scraped market comparables.
type Resolution struct {
	FMR       model.BedroomRents `json:"fmr"`
	Market    model.BedroomRents `json:"market_rent"`
	Effective model.BedroomRents `json:"effective_rent"`

	// Constrained is set when any bedroom's government figure exceeds the
	// market comparable, meaning a voucher payment would be capped.
	Constrained bool `json:"constrained"`

	// MissingMarketRent is set when no bedroom count has a comparable.
	MissingMarketRent bool `json:"missing_market_rent"`

	// GapAmount/GapPct quantify the 3-bedroom overhang (2-bedroom as
	// fallback) when the benchmark exceeds market. Nil when neither size
	// has both figures with a gap.
	GapAmount *int     `json:"gap_amount,omitempty"`
	GapPct    *float64 `json:"gap_pct,omitempty"`
}

// Resolve computes the effective rent for each bedroom count: the lesser of
// the government figure and the market comparable when both are present,
// otherwise whichever exists.
func Resolve(fmr, market model.BedroomRents) Resolution {
	res := Resolution{
		FMR:               fmr,
		Market:            market,
		MissingMarketRent: market.Empty(),
	}

	for b := 0; b <= model.MaxBedroom; b++ {
		f, hasF := fmr.Get(b)
		m, hasM := market.Get(b)

		switch {
		case hasF && hasM:
			res.Effective.Set(b, min(f, m))
			if f > m {
				res.Constrained = true
			}
		case hasF:
			res.Effective.Set(b, f)
		case hasM:
			res.Effective.Set(b, m)
		}
	}

	// Gap is reported from the 3-bedroom figures, falling back to 2-bedroom.
	for _, b := range []int{3, 2} {
		f, hasF := fmr.Get(b)
		m, hasM := market.Get(b)
		if hasF && hasM && f > m {
			gap := f - m
			pct := float64(gap) / float64(m) * 100
			res.GapAmount = &gap
			res.GapPct = &pct
			break
		}
	}

	return res
}
