package finance

import (
	"fmt"
	"strings"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ErrNonPositiveTarget is returned when an incentive target is zero or negative
var ErrNonPositiveTarget = shared.NewDomainError("NON_POSITIVE_TARGET", "Target value must be greater than zero")

// IncentiveTier is the half-open band [MinPct, MaxPct). A nil MaxPct is open-ended.
type IncentiveTier struct {
	Name   string
	MinPct decimal.Decimal
	MaxPct *decimal.Decimal
	Rate   decimal.Decimal
}

// Contains reports whether pct falls inside the band
func (t IncentiveTier) Contains(pct decimal.Decimal) bool {
	if pct.LessThan(t.MinPct) {
		return false
	}
	return t.MaxPct == nil || pct.LessThan(*t.MaxPct)
}

// Label returns a readable band description such as "80-100%" or ">=120%"
func (t IncentiveTier) Label() string {
	if t.Name != "" {
		return t.Name
	}
	if t.MaxPct == nil {
		return fmt.Sprintf(">=%s%%", t.MinPct.String())
	}
	if t.MinPct.IsZero() {
		return fmt.Sprintf("<%s%%", t.MaxPct.String())
	}
	return fmt.Sprintf("%s-%s%%", t.MinPct.String(), t.MaxPct.String())
}

// IncentivePlan is an ordered tier table covering [0, ∞) without gaps
type IncentivePlan struct {
	Name  string
	Tiers []IncentiveTier
}

func pct(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// DefaultIncentivePlan returns the <80 / 80-100 / 100-120 / >=120 table
func DefaultIncentivePlan() IncentivePlan {
	return IncentivePlan{
		Name: "default",
		Tiers: []IncentiveTier{
			{MinPct: decimal.Zero, MaxPct: pct(80), Rate: decimal.Zero},
			{MinPct: decimal.NewFromInt(80), MaxPct: pct(100), Rate: decimal.RequireFromString("0.05")},
			{MinPct: decimal.NewFromInt(100), MaxPct: pct(120), Rate: decimal.RequireFromString("0.10")},
			{MinPct: decimal.NewFromInt(120), MaxPct: nil, Rate: decimal.RequireFromString("0.15")},
		},
	}
}

// Validate checks that tiers start at zero, are contiguous, and end open
func (p IncentivePlan) Validate() error {
	if len(p.Tiers) == 0 {
		return shared.NewDomainError("INVALID_INCENTIVE_PLAN", fmt.Sprintf("Plan %q has no tiers", p.Name))
	}
	if !p.Tiers[0].MinPct.IsZero() {
		return shared.NewDomainError("INVALID_INCENTIVE_PLAN", fmt.Sprintf("Plan %q must start at 0%%", p.Name))
	}
	for i, tier := range p.Tiers {
		if tier.Rate.IsNegative() {
			return shared.NewDomainError("INVALID_INCENTIVE_PLAN", fmt.Sprintf("Plan %q tier %d has a negative rate", p.Name, i))
		}
		last := i == len(p.Tiers)-1
		if tier.MaxPct == nil {
			if !last {
				return shared.NewDomainError("INVALID_INCENTIVE_PLAN", fmt.Sprintf("Plan %q tier %d is open-ended but not last", p.Name, i))
			}
			continue
		}
		if last {
			return shared.NewDomainError("INVALID_INCENTIVE_PLAN", fmt.Sprintf("Plan %q last tier must be open-ended", p.Name))
		}
		if !tier.MaxPct.GreaterThan(tier.MinPct) {
			return shared.NewDomainError("INVALID_INCENTIVE_PLAN", fmt.Sprintf("Plan %q tier %d is empty", p.Name, i))
		}
		if !p.Tiers[i+1].MinPct.Equal(*tier.MaxPct) {
			return shared.NewDomainError("INVALID_INCENTIVE_PLAN",
				fmt.Sprintf("Plan %q has a gap or overlap between tier %d and %d", p.Name, i, i+1))
		}
	}
	return nil
}

// TierFor returns the tier containing pct and its index
func (p IncentivePlan) TierFor(achievementPct decimal.Decimal) (IncentiveTier, int, error) {
	for i, tier := range p.Tiers {
		if tier.Contains(achievementPct) {
			return tier, i, nil
		}
	}
	return IncentiveTier{}, -1, shared.NewDomainError("INVALID_INCENTIVE_PLAN",
		fmt.Sprintf("Plan %q has no tier for %s%%", p.Name, achievementPct.String()))
}

// IncentivePlanCatalog resolves plans by role and metric
type IncentivePlanCatalog struct {
	plans    map[string]IncentivePlan
	fallback IncentivePlan
}

// PlanKey builds the catalog key for a role and metric
func PlanKey(role, metric string) string {
	return strings.ToLower(strings.TrimSpace(role)) + ":" + strings.ToLower(strings.TrimSpace(metric))
}

// NewIncentivePlanCatalog validates and indexes the plans. Keys are
// normalized with PlanKey.
func NewIncentivePlanCatalog(fallback IncentivePlan, plans map[string]IncentivePlan) (*IncentivePlanCatalog, error) {
	if err := fallback.Validate(); err != nil {
		return nil, err
	}
	indexed := make(map[string]IncentivePlan, len(plans))
	for key, plan := range plans {
		if err := plan.Validate(); err != nil {
			return nil, err
		}
		parts := strings.SplitN(key, ":", 2)
		if len(parts) != 2 {
			return nil, shared.NewDomainError("INVALID_INCENTIVE_PLAN", fmt.Sprintf("Plan key %q must be role:metric", key))
		}
		indexed[PlanKey(parts[0], parts[1])] = plan
	}
	return &IncentivePlanCatalog{plans: indexed, fallback: fallback}, nil
}

// Resolve returns the plan for role and metric, or the fallback plan
func (c *IncentivePlanCatalog) Resolve(role, metric string) IncentivePlan {
	if plan, ok := c.plans[PlanKey(role, metric)]; ok {
		return plan
	}
	return c.fallback
}

// IncentiveInput is one simulation request
type IncentiveInput struct {
	Achieved   decimal.Decimal
	Target     decimal.Decimal
	BaseSalary *decimal.Decimal // when nil the rate applies to the achieved value
}

// IncentiveBasis names what the tier rate was applied to
type IncentiveBasis string

const (
	BasisBaseSalary IncentiveBasis = "BASE_SALARY"
	BasisAchieved   IncentiveBasis = "ACHIEVED_VALUE"
)

// IncentiveBreakdown explains how the amount was derived
type IncentiveBreakdown struct {
	PlanName        string
	Achieved        decimal.Decimal
	Target          decimal.Decimal
	CountedAchieved decimal.Decimal
	Basis           IncentiveBasis
	BasisAmount     decimal.Decimal
	Rate            decimal.Decimal
	Formula         string
}

// IncentiveResult is the outcome of a simulation
type IncentiveResult struct {
	AchievementPct  decimal.Decimal
	Tier            IncentiveTier
	TierIndex       int
	IncentiveAmount decimal.Decimal
	Breakdown       IncentiveBreakdown
}

// IncentiveTierEngine computes tiered incentives
type IncentiveTierEngine struct{}

// NewIncentiveTierEngine creates a new IncentiveTierEngine
func NewIncentiveTierEngine() *IncentiveTierEngine {
	return &IncentiveTierEngine{}
}

// Simulate maps achievement to a tier and computes the incentive amount.
// Negative achievement counts as zero; a non-positive target is an error.
func (e *IncentiveTierEngine) Simulate(in IncentiveInput, plan IncentivePlan) (IncentiveResult, error) {
	if !in.Target.IsPositive() {
		return IncentiveResult{}, ErrNonPositiveTarget
	}
	if err := plan.Validate(); err != nil {
		return IncentiveResult{}, err
	}

	counted := in.Achieved
	if counted.IsNegative() {
		counted = decimal.Zero
	}
	achievement := counted.Mul(hundred).Div(in.Target)

	tier, idx, err := plan.TierFor(achievement)
	if err != nil {
		return IncentiveResult{}, err
	}

	basis, basisAmount := BasisAchieved, counted
	if in.BaseSalary != nil {
		basis, basisAmount = BasisBaseSalary, *in.BaseSalary
	}
	amount := basisAmount.Mul(tier.Rate).Round(0)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return IncentiveResult{
		AchievementPct:  achievement,
		Tier:            tier,
		TierIndex:       idx,
		IncentiveAmount: amount,
		Breakdown: IncentiveBreakdown{
			PlanName:        plan.Name,
			Achieved:        in.Achieved,
			Target:          in.Target,
			CountedAchieved: counted,
			Basis:           basis,
			BasisAmount:     basisAmount,
			Rate:            tier.Rate,
			Formula: fmt.Sprintf("%s%% of %s (%s) = %s",
				tier.Rate.Mul(hundred).String(), strings.ToLower(string(basis)), basisAmount.String(), amount.String()),
		},
	}, nil
}
