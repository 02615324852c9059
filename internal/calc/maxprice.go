package calc

import "github.com/rotisserie/eris"

// MaxPriceInput describes a target-cash-flow solve. The purchase price is
// the unknown.
type MaxPriceInput struct {
	RentMonthly            float64     `json:"rent_monthly"`
	DesiredCashFlowMonthly float64     `json:"desired_cash_flow_monthly"`
	DownPayment            DownPayment `json:"down_payment"`
	Expenses
}

// MaxPriceResult is the highest purchase price that still clears the
// desired monthly cash flow.
type MaxPriceResult struct {
	Mode               Mode    `json:"mode"`
	PurchasePrice      float64 `json:"purchase_price"`
	DownPaymentDollars float64 `json:"down_payment_dollars"`
	LoanAmount         float64 `json:"loan_amount"`
	MaxMortgagePayment float64 `json:"max_mortgage_payment"`
	MonthlyTaxes       float64 `json:"monthly_taxes"`
	MonthlyCashFlowMet float64 `json:"monthly_cash_flow_met"`
}

// MaxPrice inverts the cash-flow relation for the purchase price. Mortgage
// payment and taxes are both linear in price once rate, term, and down
// payment are fixed, so the solve is a single linear equation; no iterative
// search is needed. Returns ErrInfeasible when no positive price clears the
// target.
func MaxPrice(in MaxPriceInput) (*MaxPriceResult, error) {
	in.normalize()

	// NaN or infinite rent means no price can clear the target, same as a
	// budget shortfall.
	if !isFinite(in.RentMonthly) {
		return nil, ErrInfeasible
	}
	if in.RentMonthly < 0 {
		return nil, eris.Errorf("calc: rent %v must be non-negative", in.RentMonthly)
	}
	if !isFinite(in.DesiredCashFlowMonthly) || in.DesiredCashFlowMonthly < 0 {
		return nil, eris.Errorf("calc: desired cash flow %v must be finite and non-negative", in.DesiredCashFlowMonthly)
	}
	if err := in.DownPayment.validate(); err != nil {
		return nil, err
	}
	if err := in.Expenses.validate(); err != nil {
		return nil, err
	}

	// Monthly budget for payment + taxes after fixed costs and the target.
	budget := in.RentMonthly - in.DesiredCashFlowMonthly - in.fixedMonthly()
	if budget <= 0 {
		return nil, ErrInfeasible
	}

	g := amortizeFactor(in.InterestRateAnnualPct, in.TermMonths)
	t := in.monthlyTaxFactor()

	var price float64
	switch {
	case in.DownPayment.Percent != nil:
		// payment + taxes = price * ((1-d)*g + t)
		d := *in.DownPayment.Percent / 100
		k := (1-d)*g + t
		if k <= 0 {
			return nil, ErrInfeasible
		}
		price = budget / k
	default:
		// Amount mode: payment + taxes = (price-A)*g + price*t.
		a := *in.DownPayment.Amount
		k := g + t
		if k <= 0 {
			return nil, ErrInfeasible
		}
		price = (budget + a*g) / k
		if price < a {
			// The solved loan is negative: an all-cash purchase, where only
			// taxes scale with price.
			if t <= 0 {
				return nil, ErrInfeasible
			}
			price = budget / t
		}
	}

	if !isFinite(price) || price <= 0 {
		return nil, ErrInfeasible
	}

	down := in.DownPayment.Dollars(price)
	loan := price - down
	payment := Amortize(loan, in.InterestRateAnnualPct, in.TermMonths)

	return &MaxPriceResult{
		Mode:               ModeMaxPrice,
		PurchasePrice:      price,
		DownPaymentDollars: down,
		LoanAmount:         loan,
		MaxMortgagePayment: payment,
		MonthlyTaxes:       price * t,
		MonthlyCashFlowMet: in.DesiredCashFlowMonthly,
	}, nil
}
