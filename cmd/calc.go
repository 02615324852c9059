package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rentbench/fmr-cli/internal/calc"
	"github.com/rentbench/fmr-cli/internal/rent"
)

// scenario is the shared input shape for the calculator commands and the
// POST /v1/calc endpoints. Rent is resolved from the ZIP's effective rent
// unless an explicit rent_monthly is given; expense fields override the
// county-resolved assumptions.
type scenario struct {
	Zip                 string   `json:"zip,omitempty"`
	Bedrooms            *int     `json:"bedrooms,omitempty"`
	RentMonthly         *float64 `json:"rent_monthly,omitempty"`
	DownPaymentPct      *float64 `json:"down_payment_pct,omitempty"`
	DownPaymentAmount   *float64 `json:"down_payment_amount,omitempty"`
	InterestRatePct     *float64 `json:"interest_rate_annual_pct,omitempty"`
	PropertyTaxRatePct  *float64 `json:"property_tax_rate_annual_pct,omitempty"`
	InsuranceMonthly    *float64 `json:"insurance_monthly,omitempty"`
	HOAMonthly          *float64 `json:"hoa_monthly,omitempty"`
	ManagementPctOfRent *float64 `json:"management_pct_of_rent,omitempty"`
	TermMonths          int      `json:"term_months,omitempty"`

	// Mode-specific fields.
	PurchasePrice          float64 `json:"purchase_price,omitempty"`
	DesiredCashFlowMonthly float64 `json:"desired_cash_flow_monthly,omitempty"`
	CashFlowPct            float64 `json:"cash_flow_pct,omitempty"`
}

// scenarioInputs is the fully resolved calculator input.
type scenarioInputs struct {
	Rent     float64
	Expenses calc.Expenses
	Down     calc.DownPayment
	DownPct  float64
	Bedrooms int
}

// resolveScenario fills in rent and expense assumptions from the store.
func resolveScenario(ctx context.Context, env *lookupEnv, sc scenario) (*scenarioInputs, error) {
	// Absent defaults to 3; an explicit 0 means a studio.
	bedrooms := 3
	if sc.Bedrooms != nil {
		bedrooms = *sc.Bedrooms
	}

	var (
		rentMonthly float64
		countyFIPS  string
	)
	switch {
	case sc.Zip != "":
		res, err := env.svc.ByZip(ctx, sc.Zip)
		if err != nil {
			return nil, err
		}
		r, ok := rent.ForBedrooms(res.Effective, bedrooms)
		if !ok {
			return nil, eris.Errorf("calc: no rent figure for %d bedrooms in %s", bedrooms, sc.Zip)
		}
		rentMonthly = float64(r)
		if res.County != nil {
			countyFIPS = res.County.CountyFIPS
		}
	case sc.RentMonthly == nil:
		return nil, eris.New("calc: a zip or an explicit rent_monthly is required")
	}
	if sc.RentMonthly != nil {
		rentMonthly = *sc.RentMonthly
	}

	a, err := env.resolve.ForCounty(ctx, countyFIPS)
	if err != nil {
		return nil, err
	}
	if sc.InterestRatePct != nil {
		a.InterestRateAnnualPct = *sc.InterestRatePct
	}
	if sc.PropertyTaxRatePct != nil {
		a.PropertyTaxRateAnnualPct = *sc.PropertyTaxRatePct
	}
	if sc.InsuranceMonthly != nil {
		a.InsuranceMonthly = *sc.InsuranceMonthly
	}
	if sc.HOAMonthly != nil {
		a.HOAMonthly = *sc.HOAMonthly
	}
	if sc.ManagementPctOfRent != nil {
		a.ManagementPctOfRent = *sc.ManagementPctOfRent
	}
	if sc.TermMonths > 0 {
		a.TermMonths = sc.TermMonths
	}

	downPct := a.DownPaymentPct
	if sc.DownPaymentPct != nil {
		downPct = *sc.DownPaymentPct
	}
	down := calc.PercentDown(downPct)
	if sc.DownPaymentAmount != nil {
		down = calc.AmountDown(*sc.DownPaymentAmount)
	}

	return &scenarioInputs{
		Rent:     rentMonthly,
		Expenses: a.Expenses(rentMonthly),
		Down:     down,
		DownPct:  downPct,
		Bedrooms: bedrooms,
	}, nil
}

func runScenario(ctx context.Context, env *lookupEnv, sc scenario, mode calc.Mode) (any, error) {
	in, err := resolveScenario(ctx, env, sc)
	if err != nil {
		return nil, err
	}

	switch mode {
	case calc.ModeCashFlow:
		return calc.CashFlow(calc.CashFlowInput{
			PurchasePrice: sc.PurchasePrice,
			RentMonthly:   in.Rent,
			DownPayment:   in.Down,
			Expenses:      in.Expenses,
		})
	case calc.ModeMaxPrice:
		return calc.MaxPrice(calc.MaxPriceInput{
			RentMonthly:            in.Rent,
			DesiredCashFlowMonthly: sc.DesiredCashFlowMonthly,
			DownPayment:            in.Down,
			Expenses:               in.Expenses,
		})
	case calc.ModeIdealPrice:
		return calc.IdealPrice(calc.IdealPriceInput{
			RentMonthly:    in.Rent,
			CashFlowPct:    sc.CashFlowPct,
			DownPaymentPct: in.DownPct,
			Expenses:       in.Expenses,
		})
	default:
		return nil, eris.Errorf("calc: unknown mode %q", mode)
	}
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Rental investment calculators",
}

func calcRunE(mode calc.Mode) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("calc"); err != nil {
			return err
		}

		env, err := initLookupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := runScenario(ctx, env, scenarioFromFlags(cmd), mode)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}

var calcCashFlowCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Monthly cash flow for a fixed purchase price",
	RunE:  calcRunE(calc.ModeCashFlow),
}

var calcMaxPriceCmd = &cobra.Command{
	Use:   "maxprice",
	Short: "Highest purchase price clearing a monthly cash-flow target",
	RunE:  calcRunE(calc.ModeMaxPrice),
}

var calcIdealPriceCmd = &cobra.Command{
	Use:   "ideal",
	Short: "Purchase price meeting a target annual cash-on-cash return",
	RunE:  calcRunE(calc.ModeIdealPrice),
}

func addScenarioFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("zip", "", "resolve rent from this ZIP's effective rent")
	f.Int("bedrooms", 3, "bedroom count (0-8)")
	f.Float64("rent", 0, "monthly rent override in dollars")
	f.Float64("down-pct", 0, "down payment as percent of price")
	f.Float64("down-amount", 0, "down payment in dollars")
	f.Float64("rate", 0, "annual interest rate percent override")
	f.Float64("tax-rate", 0, "annual property tax rate percent override")
	f.Float64("insurance", 0, "monthly insurance override")
	f.Float64("hoa", 0, "monthly HOA override")
	f.Float64("management-pct", 0, "management fee as percent of rent")
	f.Int("term", 0, "loan term in months")
}

func scenarioFromFlags(cmd *cobra.Command) scenario {
	f := cmd.Flags()
	sc := scenario{}
	sc.Zip, _ = f.GetString("zip")
	if f.Changed("bedrooms") {
		v, _ := f.GetInt("bedrooms")
		sc.Bedrooms = &v
	}
	sc.TermMonths, _ = f.GetInt("term")

	opt := func(name string) *float64 {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetFloat64(name)
		return &v
	}
	sc.RentMonthly = opt("rent")
	sc.DownPaymentPct = opt("down-pct")
	sc.DownPaymentAmount = opt("down-amount")
	sc.InterestRatePct = opt("rate")
	sc.PropertyTaxRatePct = opt("tax-rate")
	sc.InsuranceMonthly = opt("insurance")
	sc.HOAMonthly = opt("hoa")
	sc.ManagementPctOfRent = opt("management-pct")

	sc.PurchasePrice, _ = f.GetFloat64("price")
	sc.DesiredCashFlowMonthly, _ = f.GetFloat64("cashflow")
	sc.CashFlowPct, _ = f.GetFloat64("cashflow-pct")
	return sc
}

func init() {
	for _, c := range []*cobra.Command{calcCashFlowCmd, calcMaxPriceCmd, calcIdealPriceCmd} {
		addScenarioFlags(c)
		// Mode flags are registered on every subcommand so the shared
		// flag reader never hits an unknown name.
		c.Flags().Float64("price", 0, "purchase price in dollars")
		c.Flags().Float64("cashflow", 0, "desired monthly cash flow in dollars")
		c.Flags().Float64("cashflow-pct", 0, "target annual cash-on-cash return percent")
	}
	_ = calcCashFlowCmd.MarkFlagRequired("price")

	calcCmd.AddCommand(calcCashFlowCmd, calcMaxPriceCmd, calcIdealPriceCmd)
	rootCmd.AddCommand(calcCmd)
}
