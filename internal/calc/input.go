package calc

import (
	"errors"
	"math"

	"github.com/rotisserie/eris"
)

// ErrInfeasible is returned by the price solvers when no positive purchase
// price satisfies the requested target. Callers check it with errors.Is and
// render a "no feasible price" state instead of failing.
var ErrInfeasible = errors.New("calc: no feasible purchase price")

// Mode tags a calculator result so callers can distinguish result shapes
// without inspecting which fields happen to be present.
type Mode string

const (
	ModeCashFlow   Mode = "cashflow"
	ModeMaxPrice   Mode = "maxprice"
	ModeIdealPrice Mode = "idealprice"
)

// DownPayment is a tagged variant: exactly one of Percent or Amount is set.
// Percent is a share of the purchase price (0-100); Amount is flat dollars.
type DownPayment struct {
	Percent *float64 `json:"percent,omitempty"`
	Amount  *float64 `json:"amount,omitempty"`
}

// PercentDown returns a percent-mode down payment.
func PercentDown(pct float64) DownPayment {
	return DownPayment{Percent: &pct}
}

// AmountDown returns a dollar-mode down payment.
func AmountDown(dollars float64) DownPayment {
	return DownPayment{Amount: &dollars}
}

// Dollars returns the down payment in dollars for the given purchase price.
// Amount mode never exceeds the price itself.
func (d DownPayment) Dollars(price float64) float64 {
	switch {
	case d.Percent != nil:
		return price * (*d.Percent / 100)
	case d.Amount != nil:
		return math.Min(*d.Amount, price)
	default:
		return 0
	}
}

func (d DownPayment) validate() error {
	if d.Percent == nil && d.Amount == nil {
		return eris.New("calc: down payment requires percent or amount")
	}
	if d.Percent != nil && d.Amount != nil {
		return eris.New("calc: down payment percent and amount are mutually exclusive")
	}
	if d.Percent != nil && (!isFinite(*d.Percent) || *d.Percent < 0 || *d.Percent > 100) {
		return eris.Errorf("calc: down payment percent %v out of range [0,100]", *d.Percent)
	}
	if d.Amount != nil && (!isFinite(*d.Amount) || *d.Amount < 0) {
		return eris.Errorf("calc: down payment amount %v must be non-negative", *d.Amount)
	}
	return nil
}

// Expenses holds the price-independent monthly costs and the annual rates
// shared by every calculator mode.
type Expenses struct {
	InterestRateAnnualPct    float64 `json:"interest_rate_annual_pct"`
	PropertyTaxRateAnnualPct float64 `json:"property_tax_rate_annual_pct"`
	InsuranceMonthly         float64 `json:"insurance_monthly"`
	HOAMonthly               float64 `json:"hoa_monthly"`
	ManagementMonthly        float64 `json:"management_monthly"`
	TermMonths               int     `json:"term_months"`
}

// DefaultTermMonths is applied when TermMonths is zero.
const DefaultTermMonths = 360

func (e *Expenses) normalize() {
	if e.TermMonths == 0 {
		e.TermMonths = DefaultTermMonths
	}
}

func (e Expenses) validate() error {
	for name, v := range map[string]float64{
		"interest rate":     e.InterestRateAnnualPct,
		"property tax rate": e.PropertyTaxRateAnnualPct,
		"insurance":         e.InsuranceMonthly,
		"hoa":               e.HOAMonthly,
		"management":        e.ManagementMonthly,
	} {
		if !isFinite(v) || v < 0 {
			return eris.Errorf("calc: %s %v must be finite and non-negative", name, v)
		}
	}
	if e.TermMonths <= 0 {
		return eris.Errorf("calc: term %d must be positive months", e.TermMonths)
	}
	return nil
}

// fixedMonthly is the sum of the costs that do not vary with price.
func (e Expenses) fixedMonthly() float64 {
	return e.InsuranceMonthly + e.HOAMonthly + e.ManagementMonthly
}

// monthlyTaxFactor converts a purchase price into monthly property taxes.
func (e Expenses) monthlyTaxFactor() float64 {
	return e.PropertyTaxRateAnnualPct / 100 / 12
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
