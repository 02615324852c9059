package rent

import (
	"math"
	"sort"

	"github.com/rentbench/fmr-cli/internal/model"
)

// MedianAcrossZIPs combines per-ZIP resolutions into a single figure for a
// county or city view. Each bedroom count takes the median of the per-ZIP
// values rather than the mean: ZIP-level comparables are heterogeneous and
// a single outlier scrape should not move the headline number. Flags and
// the gap are recomputed from the aggregated figures.
func MedianAcrossZIPs(zips []Resolution) Resolution {
	if len(zips) == 0 {
		return Resolution{MissingMarketRent: true}
	}

	var fmr, market model.BedroomRents
	for b := 0; b <= model.MaxBedroom; b++ {
		var fs, ms []int
		for _, z := range zips {
			if v, ok := z.FMR.Get(b); ok {
				fs = append(fs, v)
			}
			if v, ok := z.Market.Get(b); ok {
				ms = append(ms, v)
			}
		}
		if len(fs) > 0 {
			fmr.Set(b, medianInt(fs))
		}
		if len(ms) > 0 {
			market.Set(b, medianInt(ms))
		}
	}

	return Resolve(fmr, market)
}

// medianInt returns the median of vs, rounding the midpoint of even-length
// inputs to whole dollars. vs must be non-empty.
func medianInt(vs []int) int {
	sorted := make([]int, len(vs))
	copy(sorted, vs)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return int(math.Round(float64(sorted[mid-1]+sorted[mid]) / 2))
}
