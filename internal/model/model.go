// Package model defines the shared domain types for FMR lookup and ingestion.
package model

import "time"

// MaxBedroom is the largest bedroom count HUD publishes directly.
// Larger units are extrapolated (see internal/rent).
const MaxBedroom = 4

// BedroomRents holds monthly rents in whole dollars, indexed by bedroom
// count 0-4. A nil entry means the figure is unavailable.
type BedroomRents struct {
	BR0 *int `json:"bedroom0,omitempty"`
	BR1 *int `json:"bedroom1,omitempty"`
	BR2 *int `json:"bedroom2,omitempty"`
	BR3 *int `json:"bedroom3,omitempty"`
	BR4 *int `json:"bedroom4,omitempty"`
}

// Get returns the rent for bedroom count b (0-4) and whether it is present.
func (r BedroomRents) Get(b int) (int, bool) {
	p := r.ptr(b)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// Set stores the rent for bedroom count b. Out-of-range counts are ignored.
func (r *BedroomRents) Set(b, rent int) {
	p := r.ptr(b)
	if p == nil {
		return
	}
	v := rent
	*p = &v
}

// Empty reports whether no bedroom count has a figure.
func (r BedroomRents) Empty() bool {
	for b := 0; b <= MaxBedroom; b++ {
		if _, ok := r.Get(b); ok {
			return false
		}
	}
	return true
}

func (r *BedroomRents) ptr(b int) **int {
	switch b {
	case 0:
		return &r.BR0
	case 1:
		return &r.BR1
	case 2:
		return &r.BR2
	case 3:
		return &r.BR3
	case 4:
		return &r.BR4
	default:
		return nil
	}
}

// Rents creates a BedroomRents with all five figures present.
func Rents(br0, br1, br2, br3, br4 int) BedroomRents {
	var r BedroomRents
	r.Set(0, br0)
	r.Set(1, br1)
	r.Set(2, br2)
	r.Set(3, br3)
	r.Set(4, br4)
	return r
}

// RentSource identifies which HUD dataset a figure came from.
type RentSource string

const (
	SourceSAFMR  RentSource = "safmr"  // ZIP-level Small Area FMR
	SourceCounty RentSource = "county" // county/metro-level FMR
)

// CountyFMR is one county-level FMR record for a fiscal year.
type CountyFMR struct {
	Year       int          `json:"year"`
	StateFIPS  string       `json:"state_fips"`
	CountyFIPS string       `json:"county_fips"` // 5-digit state+county
	CountyName string       `json:"county_name"`
	State      string       `json:"state"`
	Rents      BedroomRents `json:"rents"`
}

// ZipFMR is one ZIP-level SAFMR record for a fiscal year.
type ZipFMR struct {
	Year     int          `json:"year"`
	Zip      string       `json:"zip"`
	AreaCode string       `json:"area_code"`
	AreaName string       `json:"area_name"`
	Rents    BedroomRents `json:"rents"`
}

// SAFMRArea is a HUD metro area, flagged when SAFMR use is mandated.
type SAFMRArea struct {
	AreaCode string `json:"area_code"`
	AreaName string `json:"area_name"`
	Mandated bool   `json:"mandated"`
}

// ZipCounty is one row of the HUD USPS ZIP-county crosswalk. ResRatio is
// the share of the ZIP's residential addresses inside the county.
type ZipCounty struct {
	Zip        string  `json:"zip"`
	CountyFIPS string  `json:"county_fips"`
	CountyName string  `json:"county_name"`
	State      string  `json:"state"`
	ResRatio   float64 `json:"res_ratio"`
}

// MarketRent holds scraped per-bedroom market rent comparables for a ZIP.
type MarketRent struct {
	Zip       string       `json:"zip"`
	Rents     BedroomRents `json:"rents"`
	ScrapedAt time.Time    `json:"scraped_at"`
}

// YearRents is one year of a historical FMR series.
type YearRents struct {
	Year  int          `json:"year"`
	Rents BedroomRents `json:"rents"`
}
