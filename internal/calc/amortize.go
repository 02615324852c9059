// Package calc implements the investment calculator: mortgage amortization,
// monthly cash flow, and the closed-form purchase price solvers.
package calc

import "math"

// Amortize returns the level monthly payment that fully amortizes principal
// over termMonths at the given annual rate, using the standard annuity
// formula. A zero rate degenerates to straight-line principal/term; negative
// rates are clamped to zero.
func Amortize(principal, annualRatePct float64, termMonths int) float64 {
	if principal <= 0 || termMonths <= 0 {
		return 0
	}
	if annualRatePct <= 0 {
		return principal / float64(termMonths)
	}

	r := annualRatePct / 100 / 12
	return principal * r / (1 - math.Pow(1+r, float64(-termMonths)))
}

// amortizeFactor returns the monthly payment per dollar of principal. Both
// price solvers rely on the payment being linear in principal once the
// rate/term are fixed.
func amortizeFactor(annualRatePct float64, termMonths int) float64 {
	return Amortize(1, annualRatePct, termMonths)
}
