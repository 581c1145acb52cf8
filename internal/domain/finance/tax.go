package finance

import (
	"fmt"
	"sort"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PTKPCode identifies a non-taxable income threshold by marital and
// dependent status
type PTKPCode string

const (
	PTKPTK0 PTKPCode = "TK/0"
	PTKPTK1 PTKPCode = "TK/1"
	PTKPK0  PTKPCode = "K/0"
	PTKPK1  PTKPCode = "K/1"
	PTKPK2  PTKPCode = "K/2"
	PTKPK3  PTKPCode = "K/3"
)

// DefaultPTKPCode is used when a profile carries no code or an unknown one
const DefaultPTKPCode = PTKPTK0

// AllPTKPCodes lists the recognized codes in ascending exemption order
func AllPTKPCodes() []PTKPCode {
	return []PTKPCode{PTKPTK0, PTKPTK1, PTKPK0, PTKPK1, PTKPK2, PTKPK3}
}

// IsValid checks if the code is one of the recognized codes
func (c PTKPCode) IsValid() bool {
	for _, code := range AllPTKPCodes() {
		if c == code {
			return true
		}
	}
	return false
}

// String returns the string representation
func (c PTKPCode) String() string {
	return string(c)
}

// TaxBracket is one band of the progressive schedule. UpperLimit is the
// cumulative upper bound of the band; nil means unbounded.
type TaxBracket struct {
	UpperLimit *decimal.Decimal
	Rate       decimal.Decimal
}

// TaxSchedule is the configuration for PPh21 estimation
type TaxSchedule struct {
	PTKP            map[PTKPCode]decimal.Decimal
	Brackets        []TaxBracket
	NPWPSurcharge   decimal.Decimal // multiplier applied without a tax ID
	TaxableRounding decimal.Decimal // taxable base is floored to a multiple of this
}

func limit(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// DefaultTaxSchedule returns the PTKP table and the five-tier schedule
func DefaultTaxSchedule() TaxSchedule {
	return TaxSchedule{
		PTKP: map[PTKPCode]decimal.Decimal{
			PTKPTK0: decimal.NewFromInt(54_000_000),
			PTKPTK1: decimal.NewFromInt(58_500_000),
			PTKPK0:  decimal.NewFromInt(58_500_000),
			PTKPK1:  decimal.NewFromInt(63_000_000),
			PTKPK2:  decimal.NewFromInt(67_500_000),
			PTKPK3:  decimal.NewFromInt(72_000_000),
		},
		Brackets: []TaxBracket{
			{UpperLimit: limit(60_000_000), Rate: decimal.RequireFromString("0.05")},
			{UpperLimit: limit(250_000_000), Rate: decimal.RequireFromString("0.15")},
			{UpperLimit: limit(500_000_000), Rate: decimal.RequireFromString("0.25")},
			{UpperLimit: limit(5_000_000_000_000), Rate: decimal.RequireFromString("0.30")},
			{UpperLimit: nil, Rate: decimal.RequireFromString("0.35")},
		},
		NPWPSurcharge:   decimal.RequireFromString("1.20"),
		TaxableRounding: decimal.NewFromInt(1000),
	}
}

// Validate checks that the schedule is usable: the default code is present,
// bracket limits strictly increase, only the last bracket is open, and
// rates are within [0, 1].
func (s TaxSchedule) Validate() error {
	if _, ok := s.PTKP[DefaultPTKPCode]; !ok {
		return shared.NewDomainError("INVALID_TAX_SCHEDULE", fmt.Sprintf("PTKP table must define %s", DefaultPTKPCode))
	}
	for code, amount := range s.PTKP {
		if amount.IsNegative() {
			return shared.NewDomainError("INVALID_TAX_SCHEDULE", fmt.Sprintf("PTKP amount for %s cannot be negative", code))
		}
	}
	if len(s.Brackets) == 0 {
		return shared.NewDomainError("INVALID_TAX_SCHEDULE", "At least one tax bracket is required")
	}
	prev := decimal.Zero
	for i, b := range s.Brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return shared.NewDomainError("INVALID_TAX_SCHEDULE", fmt.Sprintf("Bracket %d rate must be between 0 and 1", i))
		}
		last := i == len(s.Brackets)-1
		if b.UpperLimit == nil {
			if !last {
				return shared.NewDomainError("INVALID_TAX_SCHEDULE", fmt.Sprintf("Only the last bracket may be unbounded, bracket %d is open", i))
			}
			continue
		}
		if last {
			return shared.NewDomainError("INVALID_TAX_SCHEDULE", "The last bracket must be unbounded")
		}
		if !b.UpperLimit.GreaterThan(prev) {
			return shared.NewDomainError("INVALID_TAX_SCHEDULE", fmt.Sprintf("Bracket %d limit must exceed the previous limit", i))
		}
		prev = *b.UpperLimit
	}
	if s.NPWPSurcharge.LessThan(decimal.NewFromInt(1)) {
		return shared.NewDomainError("INVALID_TAX_SCHEDULE", "NPWP surcharge multiplier must be at least 1")
	}
	if !s.TaxableRounding.IsPositive() {
		return shared.NewDomainError("INVALID_TAX_SCHEDULE", "Taxable rounding unit must be positive")
	}
	return nil
}

// ExemptionFor returns the PTKP amount for a code, falling back to TK/0
func (s TaxSchedule) ExemptionFor(code PTKPCode) (PTKPCode, decimal.Decimal) {
	if amount, ok := s.PTKP[code]; ok {
		return code, amount
	}
	return DefaultPTKPCode, s.PTKP[DefaultPTKPCode]
}

// Codes returns the configured PTKP codes in ascending exemption order
func (s TaxSchedule) Codes() []PTKPCode {
	codes := make([]PTKPCode, 0, len(s.PTKP))
	for code := range s.PTKP {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		ai, aj := s.PTKP[codes[i]], s.PTKP[codes[j]]
		if ai.Equal(aj) {
			return codes[i] < codes[j]
		}
		return ai.LessThan(aj)
	})
	return codes
}

// TaxEstimateInput is the salary profile of one employee
type TaxEstimateInput struct {
	BasicSalary decimal.Decimal
	Allowances  []decimal.Decimal
	PTKPCode    PTKPCode
	HasNPWP     bool
}

// BracketTax is the tax owed inside a single band
type BracketTax struct {
	LowerLimit    decimal.Decimal
	UpperLimit    *decimal.Decimal
	Rate          decimal.Decimal
	TaxableAmount decimal.Decimal
	Tax           decimal.Decimal
}

// TaxEstimate is the result of a withholding estimate
type TaxEstimate struct {
	PTKPCode          PTKPCode
	GrossMonthly      decimal.Decimal
	NetAnnual         decimal.Decimal
	PTKPAmount        decimal.Decimal
	AnnualTaxableBase decimal.Decimal
	AnnualTax         decimal.Decimal
	MonthlyTax        decimal.Decimal
	SurchargeApplied  bool
	Brackets          []BracketTax
}

// TaxBracketCalculator estimates monthly PPh21 withholding
type TaxBracketCalculator struct {
	schedule TaxSchedule
}

// NewTaxBracketCalculator creates a calculator for the given schedule
func NewTaxBracketCalculator(schedule TaxSchedule) *TaxBracketCalculator {
	return &TaxBracketCalculator{schedule: schedule}
}

// Schedule returns the schedule in use
func (c *TaxBracketCalculator) Schedule() TaxSchedule {
	return c.schedule
}

// Estimate computes the annual taxable base and the monthly withholding.
// Negative income is treated as zero; the result is never negative.
func (c *TaxBracketCalculator) Estimate(in TaxEstimateInput) TaxEstimate {
	gross := in.BasicSalary
	for _, a := range in.Allowances {
		gross = gross.Add(a)
	}
	if gross.IsNegative() {
		gross = decimal.Zero
	}

	code, exemption := c.schedule.ExemptionFor(in.PTKPCode)
	netAnnual := gross.Mul(decimal.NewFromInt(12))

	base := netAnnual.Sub(exemption)
	if base.IsNegative() {
		base = decimal.Zero
	}
	unit := c.schedule.TaxableRounding
	base = base.Div(unit).Floor().Mul(unit)

	annualTax, bands := c.progressive(base)

	monthly := annualTax.Div(decimal.NewFromInt(12))
	if !in.HasNPWP {
		monthly = monthly.Mul(c.schedule.NPWPSurcharge)
	}

	return TaxEstimate{
		PTKPCode:          code,
		GrossMonthly:      gross,
		NetAnnual:         netAnnual,
		PTKPAmount:        exemption,
		AnnualTaxableBase: base,
		AnnualTax:         annualTax,
		MonthlyTax:        monthly.Round(0),
		SurchargeApplied:  !in.HasNPWP,
		Brackets:          bands,
	}
}

// progressive applies each band only to the portion of base inside it
func (c *TaxBracketCalculator) progressive(base decimal.Decimal) (decimal.Decimal, []BracketTax) {
	total := decimal.Zero
	lower := decimal.Zero
	bands := make([]BracketTax, 0, len(c.schedule.Brackets))

	for _, b := range c.schedule.Brackets {
		if !base.GreaterThan(lower) {
			break
		}
		portion := base.Sub(lower)
		if b.UpperLimit != nil && base.GreaterThan(*b.UpperLimit) {
			portion = b.UpperLimit.Sub(lower)
		}
		tax := portion.Mul(b.Rate)
		total = total.Add(tax)
		bands = append(bands, BracketTax{
			LowerLimit:    lower,
			UpperLimit:    b.UpperLimit,
			Rate:          b.Rate,
			TaxableAmount: portion,
			Tax:           tax,
		})
		if b.UpperLimit == nil {
			break
		}
		lower = *b.UpperLimit
	}
	return total, bands
}
