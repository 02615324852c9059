package calc

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Assumptions is a reusable set of expense defaults for the calculator
// commands. Management is expressed as percent of rent and resolved to
// dollars per scenario.
type Assumptions struct {
	InterestRateAnnualPct    float64 `yaml:"interest_rate_annual_pct"`
	PropertyTaxRateAnnualPct float64 `yaml:"property_tax_rate_annual_pct"`
	InsuranceMonthly         float64 `yaml:"insurance_monthly"`
	HOAMonthly               float64 `yaml:"hoa_monthly"`
	ManagementPctOfRent      float64 `yaml:"management_pct_of_rent"`
	DownPaymentPct           float64 `yaml:"down_payment_pct"`
	TermMonths               int     `yaml:"term_months"`
}

// DefaultAssumptions returns the compiled-in defaults used when no preset
// file is configured.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		InterestRateAnnualPct:    6.5,
		PropertyTaxRateAnnualPct: 1.1,
		InsuranceMonthly:         150,
		HOAMonthly:               0,
		ManagementPctOfRent:      10,
		DownPaymentPct:           20,
		TermMonths:               DefaultTermMonths,
	}
}

// LoadAssumptions reads a preset file, filling unset fields from the
// defaults.
func LoadAssumptions(path string) (Assumptions, error) {
	a := DefaultAssumptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return a, eris.Wrapf(err, "calc: read presets %s", path)
	}
	if err := yaml.Unmarshal(data, &a); err != nil {
		return a, eris.Wrapf(err, "calc: parse presets %s", path)
	}
	return a, nil
}

// Expenses converts the assumptions into calculator expenses for a given
// monthly rent.
func (a Assumptions) Expenses(rentMonthly float64) Expenses {
	return Expenses{
		InterestRateAnnualPct:    a.InterestRateAnnualPct,
		PropertyTaxRateAnnualPct: a.PropertyTaxRateAnnualPct,
		InsuranceMonthly:         a.InsuranceMonthly,
		HOAMonthly:               a.HOAMonthly,
		ManagementMonthly:        rentMonthly * a.ManagementPctOfRent / 100,
		TermMonths:               a.TermMonths,
	}
}
