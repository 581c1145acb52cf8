package finance

import (
	"context"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// TaxService exposes the PPh21 estimate
type TaxService struct {
	calculator *finance.TaxBracketCalculator
}

// NewTaxService creates a new TaxService
func NewTaxService(calculator *finance.TaxBracketCalculator) *TaxService {
	return &TaxService{calculator: calculator}
}

// EstimateTaxRequest is the salary profile to estimate withholding for
type EstimateTaxRequest struct {
	BasicSalary decimal.Decimal   `json:"basic_salary" binding:"required"`
	Allowances  []decimal.Decimal `json:"allowances"`
	PTKPCode    string            `json:"ptkp_code" binding:"omitempty,ptkp_code"`
	HasNPWP     bool              `json:"has_npwp"`
}

// BracketTaxResponse is the tax owed in one band
type BracketTaxResponse struct {
	LowerLimit    decimal.Decimal  `json:"lower_limit"`
	UpperLimit    *decimal.Decimal `json:"upper_limit,omitempty"`
	Rate          decimal.Decimal  `json:"rate"`
	TaxableAmount decimal.Decimal  `json:"taxable_amount"`
	Tax           decimal.Decimal  `json:"tax"`
}

// TaxEstimateResponse is the withholding estimate
type TaxEstimateResponse struct {
	PTKPCode          string               `json:"ptkp_code"`
	GrossMonthly      decimal.Decimal      `json:"gross_monthly"`
	NetAnnual         decimal.Decimal      `json:"net_annual"`
	PTKPAmount        decimal.Decimal      `json:"ptkp_amount"`
	AnnualTaxableBase decimal.Decimal      `json:"annual_taxable_base"`
	AnnualTax         decimal.Decimal      `json:"annual_tax"`
	MonthlyTax        decimal.Decimal      `json:"monthly_tax"`
	SurchargeApplied  bool                 `json:"npwp_surcharge_applied"`
	Brackets          []BracketTaxResponse `json:"brackets"`
}

// Estimate computes the monthly withholding for a salary profile
func (s *TaxService) Estimate(_ context.Context, req EstimateTaxRequest) *TaxEstimateResponse {
	est := s.calculator.Estimate(finance.TaxEstimateInput{
		BasicSalary: req.BasicSalary,
		Allowances:  req.Allowances,
		PTKPCode:    finance.PTKPCode(req.PTKPCode),
		HasNPWP:     req.HasNPWP,
	})

	brackets := make([]BracketTaxResponse, len(est.Brackets))
	for i, b := range est.Brackets {
		brackets[i] = BracketTaxResponse{
			LowerLimit:    b.LowerLimit,
			UpperLimit:    b.UpperLimit,
			Rate:          b.Rate,
			TaxableAmount: b.TaxableAmount,
			Tax:           b.Tax,
		}
	}

	return &TaxEstimateResponse{
		PTKPCode:          string(est.PTKPCode),
		GrossMonthly:      est.GrossMonthly,
		NetAnnual:         est.NetAnnual,
		PTKPAmount:        est.PTKPAmount,
		AnnualTaxableBase: est.AnnualTaxableBase,
		AnnualTax:         est.AnnualTax,
		MonthlyTax:        est.MonthlyTax,
		SurchargeApplied:  est.SurchargeApplied,
		Brackets:          brackets,
	}
}
