package finance

import (
	"context"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// IncentiveService simulates tiered incentives against the configured plans
type IncentiveService struct {
	engine  *finance.IncentiveTierEngine
	catalog *finance.IncentivePlanCatalog
}

// NewIncentiveService creates a new IncentiveService
func NewIncentiveService(catalog *finance.IncentivePlanCatalog) *IncentiveService {
	return &IncentiveService{
		engine:  finance.NewIncentiveTierEngine(),
		catalog: catalog,
	}
}

// SimulateIncentiveRequest is one simulation request
type SimulateIncentiveRequest struct {
	Role          string           `json:"role"`
	Metric        string           `json:"metric"`
	AchievedValue decimal.Decimal  `json:"achieved_value"`
	TargetValue   decimal.Decimal  `json:"target_value" binding:"required"`
	BaseSalary    *decimal.Decimal `json:"base_salary"`
}

// CalculationDetails explains the computed amount
type CalculationDetails struct {
	Plan            string          `json:"plan"`
	Achieved        decimal.Decimal `json:"achieved_value"`
	Target          decimal.Decimal `json:"target_value"`
	CountedAchieved decimal.Decimal `json:"counted_achieved_value"`
	Basis           string          `json:"basis"`
	BasisAmount     decimal.Decimal `json:"basis_amount"`
	Rate            decimal.Decimal `json:"rate"`
	Formula         string          `json:"formula"`
}

// IncentiveResponse is the simulation outcome
type IncentiveResponse struct {
	AchievementPct     decimal.Decimal    `json:"achievement_pct"`
	Tier               string             `json:"tier"`
	TierIndex          int                `json:"tier_index"`
	Rate               decimal.Decimal    `json:"rate"`
	IncentiveAmount    decimal.Decimal    `json:"incentive_amount"`
	CalculationDetails CalculationDetails `json:"calculation_details"`
}

// Simulate resolves the plan for role and metric and runs the engine
func (s *IncentiveService) Simulate(_ context.Context, req SimulateIncentiveRequest) (*IncentiveResponse, error) {
	plan := s.catalog.Resolve(req.Role, req.Metric)
	res, err := s.engine.Simulate(finance.IncentiveInput{
		Achieved:   req.AchievedValue,
		Target:     req.TargetValue,
		BaseSalary: req.BaseSalary,
	}, plan)
	if err != nil {
		return nil, err
	}

	b := res.Breakdown
	return &IncentiveResponse{
		AchievementPct:  res.AchievementPct.Round(2),
		Tier:            res.Tier.Label(),
		TierIndex:       res.TierIndex,
		Rate:            res.Tier.Rate,
		IncentiveAmount: res.IncentiveAmount,
		CalculationDetails: CalculationDetails{
			Plan:            b.PlanName,
			Achieved:        b.Achieved,
			Target:          b.Target,
			CountedAchieved: b.CountedAchieved,
			Basis:           string(b.Basis),
			BasisAmount:     b.BasisAmount,
			Rate:            b.Rate,
			Formula:         b.Formula,
		},
	}, nil
}
