package config

import (
	"fmt"
	"strings"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// FinanceConfig holds the tax, incentive, matching and posting tables.
// Amounts and rates are decoded as strings so they reach decimal.Decimal
// without passing through float64. Empty sections keep the built-in tables.
type FinanceConfig struct {
	PTKP                 map[string]string       `mapstructure:"ptkp"`
	TaxBrackets          []TaxBracketConfig      `mapstructure:"tax_brackets"`
	NPWPSurcharge        string                  `mapstructure:"npwp_surcharge"`
	TaxableRounding      string                  `mapstructure:"taxable_rounding"`
	IncentivePlans       map[string][]TierConfig `mapstructure:"incentive_plans"`
	AutoMatchTolerance   string                  `mapstructure:"auto_match_tolerance"`
	ManualMatchTolerance string                  `mapstructure:"manual_match_tolerance"`
	Accounts             AccountsConfig          `mapstructure:"accounts"`
}

// TaxBracketConfig is one progressive band; an empty UpperLimit is open-ended
type TaxBracketConfig struct {
	UpperLimit string `mapstructure:"upper_limit"`
	Rate       string `mapstructure:"rate"`
}

// TierConfig is one incentive band; an empty MaxPct is open-ended
type TierConfig struct {
	Name   string `mapstructure:"name"`
	MinPct string `mapstructure:"min_pct"`
	MaxPct string `mapstructure:"max_pct"`
	Rate   string `mapstructure:"rate"`
}

// AccountsConfig maps automatic postings to account codes
type AccountsConfig struct {
	Cash                    string `mapstructure:"cash"`
	Receivable              string `mapstructure:"receivable"`
	Payable                 string `mapstructure:"payable"`
	DepreciationExpense     string `mapstructure:"depreciation_expense"`
	AccumulatedDepreciation string `mapstructure:"accumulated_depreciation"`
	Suspense                string `mapstructure:"suspense"`
}

// DefaultPlanKey names the fallback plan in incentive_plans
const DefaultPlanKey = "default"

func (f *FinanceConfig) applyDefaults() {
	if f.Accounts.Cash == "" {
		f.Accounts.Cash = "1-1100"
	}
	if f.Accounts.Receivable == "" {
		f.Accounts.Receivable = "1-1300"
	}
	if f.Accounts.Payable == "" {
		f.Accounts.Payable = "2-1100"
	}
	if f.Accounts.DepreciationExpense == "" {
		f.Accounts.DepreciationExpense = "6-1500"
	}
	if f.Accounts.AccumulatedDepreciation == "" {
		f.Accounts.AccumulatedDepreciation = "1-2900"
	}
	if f.Accounts.Suspense == "" {
		f.Accounts.Suspense = "1-1900"
	}
}

// Validate builds every finance table once so that a bad file fails at startup
func (f FinanceConfig) Validate() error {
	if _, err := f.TaxSchedule(); err != nil {
		return err
	}
	if _, err := f.IncentiveCatalog(); err != nil {
		return err
	}
	if _, err := f.MatchPolicy(); err != nil {
		return err
	}
	return nil
}

// TaxSchedule returns the PPh21 schedule with configured overrides applied
func (f FinanceConfig) TaxSchedule() (finance.TaxSchedule, error) {
	schedule := finance.DefaultTaxSchedule()

	if len(f.PTKP) > 0 {
		schedule.PTKP = make(map[finance.PTKPCode]decimal.Decimal, len(f.PTKP))
		for code, raw := range f.PTKP {
			amount, err := parseDecimal("ptkp."+code, raw)
			if err != nil {
				return finance.TaxSchedule{}, err
			}
			// viper lower-cases map keys
			schedule.PTKP[finance.PTKPCode(strings.ToUpper(code))] = amount
		}
	}

	if len(f.TaxBrackets) > 0 {
		schedule.Brackets = make([]finance.TaxBracket, len(f.TaxBrackets))
		for i, b := range f.TaxBrackets {
			rate, err := parseDecimal(fmt.Sprintf("tax_brackets[%d].rate", i), b.Rate)
			if err != nil {
				return finance.TaxSchedule{}, err
			}
			bracket := finance.TaxBracket{Rate: rate}
			if b.UpperLimit != "" {
				upper, err := parseDecimal(fmt.Sprintf("tax_brackets[%d].upper_limit", i), b.UpperLimit)
				if err != nil {
					return finance.TaxSchedule{}, err
				}
				bracket.UpperLimit = &upper
			}
			schedule.Brackets[i] = bracket
		}
	}

	if f.NPWPSurcharge != "" {
		v, err := parseDecimal("npwp_surcharge", f.NPWPSurcharge)
		if err != nil {
			return finance.TaxSchedule{}, err
		}
		schedule.NPWPSurcharge = v
	}
	if f.TaxableRounding != "" {
		v, err := parseDecimal("taxable_rounding", f.TaxableRounding)
		if err != nil {
			return finance.TaxSchedule{}, err
		}
		schedule.TaxableRounding = v
	}

	if err := schedule.Validate(); err != nil {
		return finance.TaxSchedule{}, err
	}
	return schedule, nil
}

// IncentiveCatalog returns the plan catalog. The "default" entry replaces the
// built-in fallback plan; every other key is role:metric.
func (f FinanceConfig) IncentiveCatalog() (*finance.IncentivePlanCatalog, error) {
	fallback := finance.DefaultIncentivePlan()
	plans := make(map[string]finance.IncentivePlan, len(f.IncentivePlans))

	for key, tiers := range f.IncentivePlans {
		plan, err := buildPlan(key, tiers)
		if err != nil {
			return nil, err
		}
		if key == DefaultPlanKey {
			fallback = plan
			continue
		}
		plans[key] = plan
	}
	return finance.NewIncentivePlanCatalog(fallback, plans)
}

func buildPlan(key string, tiers []TierConfig) (finance.IncentivePlan, error) {
	plan := finance.IncentivePlan{Name: key, Tiers: make([]finance.IncentiveTier, len(tiers))}
	for i, t := range tiers {
		field := fmt.Sprintf("incentive_plans.%s[%d]", key, i)
		minPct, err := parseDecimal(field+".min_pct", t.MinPct)
		if err != nil {
			return plan, err
		}
		rate, err := parseDecimal(field+".rate", t.Rate)
		if err != nil {
			return plan, err
		}
		tier := finance.IncentiveTier{Name: t.Name, MinPct: minPct, Rate: rate}
		if t.MaxPct != "" {
			maxPct, err := parseDecimal(field+".max_pct", t.MaxPct)
			if err != nil {
				return plan, err
			}
			tier.MaxPct = &maxPct
		}
		plan.Tiers[i] = tier
	}
	return plan, nil
}

// MatchPolicy returns the reconciliation tolerances
func (f FinanceConfig) MatchPolicy() (finance.MatchPolicy, error) {
	policy := finance.DefaultMatchPolicy()
	if f.AutoMatchTolerance != "" {
		v, err := parseDecimal("auto_match_tolerance", f.AutoMatchTolerance)
		if err != nil {
			return policy, err
		}
		policy.AutoAmountTolerance = v
	}
	if f.ManualMatchTolerance != "" {
		v, err := parseDecimal("manual_match_tolerance", f.ManualMatchTolerance)
		if err != nil {
			return policy, err
		}
		policy.ManualTolerancePct = v
	}
	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q: %w", field, raw, err)
	}
	return d, nil
}
