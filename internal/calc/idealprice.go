package calc

import "github.com/rotisserie/eris"

// IdealPriceInput describes the legacy cash-on-cash solve: instead of a
// dollar cash-flow target, the caller supplies a target annual return on the
// cash invested (the down payment). Only percent-mode down payments are
// meaningful here, since the target itself scales with the price.
type IdealPriceInput struct {
	RentMonthly    float64 `json:"rent_monthly"`
	CashFlowPct    float64 `json:"cash_flow_pct"`     // target annual cash-on-cash return
	DownPaymentPct float64 `json:"down_payment_pct"`
	Expenses
}

// IdealPriceResult is the purchase price at which the target cash-on-cash
// return is exactly met.
type IdealPriceResult struct {
	Mode                    Mode    `json:"mode"`
	PurchasePrice           float64 `json:"purchase_price"`
	DownPaymentDollars      float64 `json:"down_payment_dollars"`
	LoanAmount              float64 `json:"loan_amount"`
	MonthlyMortgagePayment  float64 `json:"monthly_mortgage_payment"`
	MonthlyCashFlowRequired float64 `json:"monthly_cash_flow_required"`
}

// IdealPrice solves for the purchase price where monthly cash flow equals
// price * downPct * cashFlowPct / 12, the legacy single-mode calculation.
// The required cash flow is itself linear in price, so this is a second
// linear equation with the same structure as MaxPrice.
func IdealPrice(in IdealPriceInput) (*IdealPriceResult, error) {
	in.normalize()

	if !isFinite(in.RentMonthly) || in.RentMonthly < 0 {
		return nil, eris.Errorf("calc: rent %v must be finite and non-negative", in.RentMonthly)
	}
	if !isFinite(in.CashFlowPct) || in.CashFlowPct < 0 {
		return nil, eris.Errorf("calc: cash flow pct %v must be finite and non-negative", in.CashFlowPct)
	}
	if !isFinite(in.DownPaymentPct) || in.DownPaymentPct < 0 || in.DownPaymentPct > 100 {
		return nil, eris.Errorf("calc: down payment pct %v out of range [0,100]", in.DownPaymentPct)
	}
	if err := in.Expenses.validate(); err != nil {
		return nil, err
	}

	budget := in.RentMonthly - in.fixedMonthly()
	if budget <= 0 {
		return nil, ErrInfeasible
	}

	d := in.DownPaymentPct / 100
	g := amortizeFactor(in.InterestRateAnnualPct, in.TermMonths)
	k := (1-d)*g + in.monthlyTaxFactor()

	// budget = price*k + price*d*c/12, with c the annual return target.
	denom := k
	if in.CashFlowPct > 0 {
		denom += d * in.CashFlowPct / 100 / 12
	}
	if denom <= 0 {
		return nil, ErrInfeasible
	}

	price := budget / denom
	if !isFinite(price) || price <= 0 {
		return nil, ErrInfeasible
	}

	down := price * d
	loan := price - down

	return &IdealPriceResult{
		Mode:                    ModeIdealPrice,
		PurchasePrice:           price,
		DownPaymentDollars:      down,
		LoanAmount:              loan,
		MonthlyMortgagePayment:  Amortize(loan, in.InterestRateAnnualPct, in.TermMonths),
		MonthlyCashFlowRequired: price * d * in.CashFlowPct / 100 / 12,
	}, nil
}
