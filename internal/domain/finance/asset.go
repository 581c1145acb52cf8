package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepreciationMethod is the allocation method of a fixed asset
type DepreciationMethod string

const (
	DepreciationStraightLine     DepreciationMethod = "STRAIGHT_LINE"
	DepreciationDecliningBalance DepreciationMethod = "DECLINING_BALANCE"
)

// IsValid checks if the method is supported
func (m DepreciationMethod) IsValid() bool {
	return m == DepreciationStraightLine || m == DepreciationDecliningBalance
}

// String returns the string representation
func (m DepreciationMethod) String() string {
	return string(m)
}

// AssetStatus represents the lifecycle state of a fixed asset
type AssetStatus string

const (
	AssetStatusActive           AssetStatus = "ACTIVE"
	AssetStatusFullyDepreciated AssetStatus = "FULLY_DEPRECIATED"
	AssetStatusDisposed         AssetStatus = "DISPOSED" // terminal, set outside the scheduler
)

// IsValid checks if the status is a valid AssetStatus
func (s AssetStatus) IsValid() bool {
	switch s {
	case AssetStatusActive, AssetStatusFullyDepreciated, AssetStatusDisposed:
		return true
	}
	return false
}

// String returns the string representation
func (s AssetStatus) String() string {
	return string(s)
}

// Asset is a depreciable fixed asset.
// CurrentBookValue always equals AcquisitionCost - AccumulatedDepreciation
// and never drops below ResidualValue.
type Asset struct {
	shared.TenantAggregateRoot
	Code                    string
	Name                    string
	AcquisitionCost         decimal.Decimal
	ResidualValue           decimal.Decimal
	UsefulLifeYears         int
	Method                  DepreciationMethod
	AccumulatedDepreciation decimal.Decimal
	CurrentBookValue        decimal.Decimal
	Status                  AssetStatus
	PeriodsDepreciated      int     // months already charged, drives the remaining-life calculation
	LastDepreciatedPeriod   *Period // nil until the first run
	DisposedAt              *time.Time
}

// NewAssetInput carries registration data for a new asset
type NewAssetInput struct {
	Code            string
	Name            string
	AcquisitionCost decimal.Decimal
	ResidualValue   decimal.Decimal
	UsefulLifeYears int
	Method          DepreciationMethod

	// Opening balances for assets migrated mid-life
	AccumulatedDepreciation decimal.Decimal
	PeriodsDepreciated      int
	LastDepreciatedPeriod   *Period
}

// NewAsset registers an ACTIVE asset. Book value starts at cost minus any
// opening accumulated depreciation.
func NewAsset(tenantID uuid.UUID, in NewAssetInput) (*Asset, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, shared.NewDomainError("INVALID_ASSET_CODE", "Asset code cannot be empty")
	}
	if len(in.Code) > 50 {
		return nil, shared.NewDomainError("INVALID_ASSET_CODE", "Asset code cannot exceed 50 characters")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, shared.NewDomainError("INVALID_ASSET_NAME", "Asset name cannot be empty")
	}
	if in.PeriodsDepreciated < 0 {
		return nil, shared.NewDomainError("INVALID_ASSET", "Periods depreciated cannot be negative")
	}

	a := &Asset{
		TenantAggregateRoot:     shared.NewTenantAggregateRoot(tenantID),
		Code:                    in.Code,
		Name:                    in.Name,
		AcquisitionCost:         in.AcquisitionCost,
		ResidualValue:           in.ResidualValue,
		UsefulLifeYears:         in.UsefulLifeYears,
		Method:                  in.Method,
		AccumulatedDepreciation: in.AccumulatedDepreciation,
		CurrentBookValue:        in.AcquisitionCost.Sub(in.AccumulatedDepreciation),
		Status:                  AssetStatusActive,
		PeriodsDepreciated:      in.PeriodsDepreciated,
		LastDepreciatedPeriod:   in.LastDepreciatedPeriod,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if !a.CurrentBookValue.GreaterThan(a.ResidualValue) {
		a.Status = AssetStatusFullyDepreciated
	}

	a.AddDomainEvent(NewAssetRegisteredEvent(a))
	return a, nil
}

// AssetValidationError reports a malformed asset record
type AssetValidationError struct {
	AssetID uuid.UUID
	Reason  string
	Message string
}

// Error implements the error interface
func (e *AssetValidationError) Error() string {
	return fmt.Sprintf("asset %s: %s", e.AssetID, e.Message)
}

// Is lets errors.Is treat an asset validation error as invalid input
func (e *AssetValidationError) Is(target error) bool {
	return target == shared.ErrInvalidInput
}

func invalidAsset(a *Asset, reason, format string, args ...any) error {
	return &AssetValidationError{AssetID: a.ID, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the asset's amounts and enums for consistency
func (a *Asset) Validate() error {
	switch {
	case a.AcquisitionCost.IsNegative():
		return invalidAsset(a, "NEGATIVE_COST", "acquisition cost %s is negative", a.AcquisitionCost)
	case a.ResidualValue.IsNegative():
		return invalidAsset(a, "NEGATIVE_RESIDUAL", "residual value %s is negative", a.ResidualValue)
	case a.ResidualValue.GreaterThan(a.AcquisitionCost):
		return invalidAsset(a, "RESIDUAL_EXCEEDS_COST", "residual value %s exceeds acquisition cost %s", a.ResidualValue, a.AcquisitionCost)
	case a.UsefulLifeYears <= 0:
		return invalidAsset(a, "INVALID_USEFUL_LIFE", "useful life must be positive, got %d", a.UsefulLifeYears)
	case !a.Method.IsValid():
		return invalidAsset(a, "UNKNOWN_METHOD", "unknown depreciation method %q", a.Method)
	case !a.Status.IsValid():
		return invalidAsset(a, "UNKNOWN_STATUS", "unknown asset status %q", a.Status)
	case a.AccumulatedDepreciation.IsNegative():
		return invalidAsset(a, "NEGATIVE_ACCUMULATED", "accumulated depreciation %s is negative", a.AccumulatedDepreciation)
	case !a.CurrentBookValue.Equal(a.AcquisitionCost.Sub(a.AccumulatedDepreciation)):
		return invalidAsset(a, "BOOK_VALUE_MISMATCH", "book value %s does not equal cost %s minus accumulated %s",
			a.CurrentBookValue, a.AcquisitionCost, a.AccumulatedDepreciation)
	case a.CurrentBookValue.LessThan(a.ResidualValue):
		return invalidAsset(a, "BOOK_BELOW_RESIDUAL", "book value %s is below residual value %s", a.CurrentBookValue, a.ResidualValue)
	}
	return nil
}

// DepreciableAmount returns cost minus residual value
func (a *Asset) DepreciableAmount() decimal.Decimal {
	return a.AcquisitionCost.Sub(a.ResidualValue)
}

// RemainingDepreciable returns what can still be charged before the floor
func (a *Asset) RemainingDepreciable() decimal.Decimal {
	return a.CurrentBookValue.Sub(a.ResidualValue)
}

// LifeMonths returns the useful life in months
func (a *Asset) LifeMonths() int {
	return a.UsefulLifeYears * 12
}

// Dispose retires the asset. It is the only way into DISPOSED.
func (a *Asset) Dispose() error {
	if a.Status == AssetStatusDisposed {
		return shared.NewDomainError("INVALID_STATE", "Asset is already disposed")
	}
	now := time.Now()
	a.Status = AssetStatusDisposed
	a.DisposedAt = &now
	a.IncrementVersion()
	a.AddDomainEvent(NewAssetDisposedEvent(a))
	return nil
}

// clone returns an independent copy that can be mutated without touching a
func (a *Asset) clone() *Asset {
	c := *a
	c.Detach()
	if a.LastDepreciatedPeriod != nil {
		p := *a.LastDepreciatedPeriod
		c.LastDepreciatedPeriod = &p
	}
	return &c
}
