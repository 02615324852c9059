package calc

import "github.com/rotisserie/eris"

// CashFlowInput describes a purchase scenario. RentMonthly must already be
// resolved for the chosen bedroom count (see internal/rent), and
// ManagementMonthly must be a dollar amount (percent-of-rent is the caller's
// concern).
type CashFlowInput struct {
	PurchasePrice float64     `json:"purchase_price"`
	RentMonthly   float64     `json:"rent_monthly"`
	DownPayment   DownPayment `json:"down_payment"`
	Expenses
}

// CashFlowResult is the monthly breakdown for a fixed purchase price.
type CashFlowResult struct {
	Mode                   Mode    `json:"mode"`
	PurchasePrice          float64 `json:"purchase_price"`
	DownPaymentDollars     float64 `json:"down_payment_dollars"`
	LoanAmount             float64 `json:"loan_amount"`
	MonthlyMortgagePayment float64 `json:"monthly_mortgage_payment"`
	MonthlyTaxes           float64 `json:"monthly_taxes"`
	MonthlyExpenses        float64 `json:"monthly_expenses"`
	MonthlyCashFlow        float64 `json:"monthly_cash_flow"`
}

// CashFlow computes the monthly net cash flow for a purchase. It is a pure
// function: identical inputs always produce identical results.
func CashFlow(in CashFlowInput) (*CashFlowResult, error) {
	in.normalize()

	if !isFinite(in.PurchasePrice) || in.PurchasePrice <= 0 {
		return nil, eris.Errorf("calc: purchase price %v must be positive", in.PurchasePrice)
	}
	if !isFinite(in.RentMonthly) || in.RentMonthly < 0 {
		return nil, eris.Errorf("calc: rent %v must be finite and non-negative", in.RentMonthly)
	}
	if err := in.DownPayment.validate(); err != nil {
		return nil, err
	}
	if err := in.Expenses.validate(); err != nil {
		return nil, err
	}

	down := in.DownPayment.Dollars(in.PurchasePrice)
	loan := in.PurchasePrice - down
	payment := Amortize(loan, in.InterestRateAnnualPct, in.TermMonths)
	taxes := in.PurchasePrice * in.monthlyTaxFactor()
	expenses := payment + taxes + in.fixedMonthly()

	return &CashFlowResult{
		Mode:                   ModeCashFlow,
		PurchasePrice:          in.PurchasePrice,
		DownPaymentDollars:     down,
		LoanAmount:             loan,
		MonthlyMortgagePayment: payment,
		MonthlyTaxes:           taxes,
		MonthlyExpenses:        expenses,
		MonthlyCashFlow:        in.RentMonthly - expenses,
	}, nil
}
