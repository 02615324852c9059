package rent

import (
	"math"

	"github.com/rentbench/fmr-cli/internal/model"
)

// MaxSupportedBedrooms is the largest unit size the calculator accepts.
const MaxSupportedBedrooms = 8

// extrapolationStep is the per-bedroom multiplier applied above the largest
// published size. HUD stops at 4 bedrooms; each additional bedroom adds 15%.
const extrapolationStep = 1.15

// ForBedrooms returns the monthly rent for an n-bedroom unit. Counts are
// clamped to [0, 8]. Sizes above 4 bedrooms are extrapolated from the
// 4-bedroom figure and rounded to whole dollars.
func ForBedrooms(rents model.BedroomRents, n int) (int, bool) {
	if n < 0 {
		n = 0
	}
	if n > MaxSupportedBedrooms {
		n = MaxSupportedBedrooms
	}

	if n <= model.MaxBedroom {
		return rents.Get(n)
	}

	base, ok := rents.Get(model.MaxBedroom)
	if !ok {
		return 0, false
	}
	v := float64(base) * math.Pow(extrapolationStep, float64(n-model.MaxBedroom))
	return int(math.Round(v)), true
}
