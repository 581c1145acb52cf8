package finance

import (
	"errors"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepreciationHistoryEntry is the immutable record of one period's charge.
// (AssetID, Period) is unique.
type DepreciationHistoryEntry struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	AssetID          uuid.UUID
	Period           Period
	Method           DepreciationMethod
	Expense          decimal.Decimal
	AccumulatedAfter decimal.Decimal
	BookValueAfter   decimal.Decimal
	JournalEntryID   *uuid.UUID
	CreatedAt        time.Time
}

// SkipReason explains why a period run left the asset untouched
type SkipReason string

const (
	SkipNotActive     SkipReason = "NOT_ACTIVE"
	SkipAtResidual    SkipReason = "AT_RESIDUAL_VALUE"
	SkipAlreadyPosted SkipReason = "ALREADY_POSTED"
	// SkipOutOfOrder marks a period before the asset's last posted period.
	// Periods post in order, so a missed month cannot be backfilled.
	SkipOutOfOrder SkipReason = "OUT_OF_ORDER"
)

// DepreciationResult is the outcome of running one asset for one period.
// When Skipped is true Entry and Asset are nil.
type DepreciationResult struct {
	Skipped    bool
	SkipReason SkipReason
	Entry      *DepreciationHistoryEntry
	Asset      *Asset
}

// DepreciationFailure records an asset the batch could not process
type DepreciationFailure struct {
	AssetID uuid.UUID
	Reason  string
	Message string
}

// DepreciationBatchResult summarizes a batch run. Each processed asset has
// exactly one entry in Results.
type DepreciationBatchResult struct {
	Period    Period
	Processed int
	Skipped   int
	Failures  []DepreciationFailure
	Results   []DepreciationResult
}

// DepreciationScheduler computes monthly depreciation. It never mutates its
// inputs; updated assets are returned as new values.
type DepreciationScheduler struct{}

// NewDepreciationScheduler creates a new DepreciationScheduler
func NewDepreciationScheduler() *DepreciationScheduler {
	return &DepreciationScheduler{}
}

// RunPeriod charges one period of depreciation against the asset.
// Periods advance monotonically: the last posted period is skipped as
// ALREADY_POSTED and any earlier one as OUT_OF_ORDER.
// A malformed asset returns an *AssetValidationError.
func (s *DepreciationScheduler) RunPeriod(asset *Asset, period Period) (DepreciationResult, error) {
	if err := asset.Validate(); err != nil {
		return DepreciationResult{}, err
	}
	if period.IsZero() {
		return DepreciationResult{}, invalidAsset(asset, "INVALID_PERIOD", "period is required")
	}

	switch {
	case asset.Status != AssetStatusActive:
		return DepreciationResult{Skipped: true, SkipReason: SkipNotActive}, nil
	case !asset.CurrentBookValue.GreaterThan(asset.ResidualValue):
		return DepreciationResult{Skipped: true, SkipReason: SkipAtResidual}, nil
	case asset.LastDepreciatedPeriod != nil && period == *asset.LastDepreciatedPeriod:
		return DepreciationResult{Skipped: true, SkipReason: SkipAlreadyPosted}, nil
	case asset.LastDepreciatedPeriod != nil && !period.After(*asset.LastDepreciatedPeriod):
		return DepreciationResult{Skipped: true, SkipReason: SkipOutOfOrder}, nil
	}

	expense := s.periodExpense(asset)

	updated := asset.clone()
	updated.AccumulatedDepreciation = asset.AccumulatedDepreciation.Add(expense)
	updated.CurrentBookValue = asset.AcquisitionCost.Sub(updated.AccumulatedDepreciation)
	updated.PeriodsDepreciated = asset.PeriodsDepreciated + 1
	p := period
	updated.LastDepreciatedPeriod = &p
	if !updated.CurrentBookValue.GreaterThan(updated.ResidualValue) {
		updated.Status = AssetStatusFullyDepreciated
	}
	updated.IncrementVersion()

	entry := &DepreciationHistoryEntry{
		ID:               uuid.New(),
		TenantID:         asset.TenantID,
		AssetID:          asset.ID,
		Period:           period,
		Method:           asset.Method,
		Expense:          expense,
		AccumulatedAfter: updated.AccumulatedDepreciation,
		BookValueAfter:   updated.CurrentBookValue,
		CreatedAt:        time.Now(),
	}

	updated.AddDomainEvent(NewAssetDepreciatedEvent(updated, entry))
	if updated.Status == AssetStatusFullyDepreciated {
		updated.AddDomainEvent(NewAssetFullyDepreciatedEvent(updated, period))
	}

	return DepreciationResult{Entry: entry, Asset: updated}, nil
}

// periodExpense returns the charge for the next period in whole rupiah,
// clamped so the book value lands exactly on the residual value.
func (s *DepreciationScheduler) periodExpense(a *Asset) decimal.Decimal {
	remaining := a.RemainingDepreciable()
	monthsLeft := a.LifeMonths() - a.PeriodsDepreciated
	if monthsLeft <= 1 {
		return remaining
	}

	var expense decimal.Decimal
	switch a.Method {
	case DepreciationStraightLine:
		expense = a.DepreciableAmount().Div(decimal.NewFromInt(int64(a.LifeMonths()))).Floor()
		// the last full period absorbs the rounding remainder
		if remaining.Sub(expense).LessThan(expense) {
			expense = remaining
		}
	case DepreciationDecliningBalance:
		// double-declining on book value, switching to straight-line over
		// the remaining life once that charges more
		expense = a.CurrentBookValue.Mul(decimal.NewFromInt(2)).
			Div(decimal.NewFromInt(int64(a.LifeMonths()))).Floor()
		straight := remaining.Div(decimal.NewFromInt(int64(monthsLeft))).Floor()
		if straight.GreaterThan(expense) {
			expense = straight
		}
	}

	if expense.LessThan(decimal.NewFromInt(1)) {
		expense = decimal.NewFromInt(1)
	}
	if expense.GreaterThan(remaining) {
		expense = remaining
	}
	return expense
}

// RunBatch runs every asset independently. Malformed assets become
// failures and never abort the batch.
func (s *DepreciationScheduler) RunBatch(assets []*Asset, period Period) DepreciationBatchResult {
	result := DepreciationBatchResult{
		Period:   period,
		Failures: make([]DepreciationFailure, 0),
		Results:  make([]DepreciationResult, 0, len(assets)),
	}

	for _, asset := range assets {
		if asset == nil {
			result.Failures = append(result.Failures, DepreciationFailure{
				Reason:  "MISSING_ASSET",
				Message: "asset record is nil",
			})
			continue
		}

		res, err := s.RunPeriod(asset, period)
		if err != nil {
			result.Failures = append(result.Failures, DepreciationFailureFrom(asset.ID, err))
			continue
		}
		if res.Skipped {
			result.Skipped++
			continue
		}
		result.Processed++
		result.Results = append(result.Results, res)
	}

	return result
}

// DepreciationFailureFrom converts a validation or persistence error into a
// batch failure
func DepreciationFailureFrom(assetID uuid.UUID, err error) DepreciationFailure {
	var ve *AssetValidationError
	if errors.As(err, &ve) {
		return DepreciationFailure{AssetID: assetID, Reason: ve.Reason, Message: ve.Message}
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return DepreciationFailure{AssetID: assetID, Reason: de.Code, Message: de.Message}
	}
	return DepreciationFailure{AssetID: assetID, Reason: "PROCESSING_ERROR", Message: err.Error()}
}
