package models

import (
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetModel is the persistence model for the Asset aggregate root
type AssetModel struct {
	TenantAggregateModel
	Code                    string                     `gorm:"type:varchar(50);not null"`
	Name                    string                     `gorm:"type:varchar(200);not null"`
	AcquisitionCost         decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	ResidualValue           decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	UsefulLifeYears         int                        `gorm:"not null"`
	Method                  finance.DepreciationMethod `gorm:"type:varchar(30);not null"`
	AccumulatedDepreciation decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	CurrentBookValue        decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	Status                  finance.AssetStatus        `gorm:"type:varchar(30);not null;index"`
	PeriodsDepreciated      int                        `gorm:"not null;default:0"`
	LastDepreciatedPeriod   *finance.Period            `gorm:"type:varchar(7)"`
	DisposedAt              *time.Time
}

// TableName returns the table name for GORM
func (AssetModel) TableName() string {
	return "fixed_assets"
}

// ToDomain converts the persistence model to a domain Asset
func (m *AssetModel) ToDomain() *finance.Asset {
	return &finance.Asset{
		TenantAggregateRoot:     m.TenantAggregateModel.ToDomain(),
		Code:                    m.Code,
		Name:                    m.Name,
		AcquisitionCost:         m.AcquisitionCost,
		ResidualValue:           m.ResidualValue,
		UsefulLifeYears:         m.UsefulLifeYears,
		Method:                  m.Method,
		AccumulatedDepreciation: m.AccumulatedDepreciation,
		CurrentBookValue:        m.CurrentBookValue,
		Status:                  m.Status,
		PeriodsDepreciated:      m.PeriodsDepreciated,
		LastDepreciatedPeriod:   m.LastDepreciatedPeriod,
		DisposedAt:              m.DisposedAt,
	}
}

// AssetModelFromDomain creates a persistence model from a domain Asset
func AssetModelFromDomain(a *finance.Asset) *AssetModel {
	m := &AssetModel{
		Code:                    a.Code,
		Name:                    a.Name,
		AcquisitionCost:         a.AcquisitionCost,
		ResidualValue:           a.ResidualValue,
		UsefulLifeYears:         a.UsefulLifeYears,
		Method:                  a.Method,
		AccumulatedDepreciation: a.AccumulatedDepreciation,
		CurrentBookValue:        a.CurrentBookValue,
		Status:                  a.Status,
		PeriodsDepreciated:      a.PeriodsDepreciated,
		LastDepreciatedPeriod:   a.LastDepreciatedPeriod,
		DisposedAt:              a.DisposedAt,
	}
	m.TenantAggregateModel.FromDomain(a.TenantAggregateRoot)
	return m
}

// DepreciationHistoryModel is one immutable period charge.
// (asset_id, period) is unique.
type DepreciationHistoryModel struct {
	ID               uuid.UUID                  `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID                  `gorm:"type:uuid;not null;index"`
	AssetID          uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_depreciation_asset_period,priority:1"`
	Period           finance.Period             `gorm:"type:varchar(7);not null;uniqueIndex:idx_depreciation_asset_period,priority:2"`
	Method           finance.DepreciationMethod `gorm:"type:varchar(30);not null"`
	Expense          decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	AccumulatedAfter decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	BookValueAfter   decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	JournalEntryID   *uuid.UUID                 `gorm:"type:uuid"`
	CreatedAt        time.Time                  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DepreciationHistoryModel) TableName() string {
	return "depreciation_history"
}

// ToDomain converts the persistence model to a domain history entry
func (m *DepreciationHistoryModel) ToDomain() finance.DepreciationHistoryEntry {
	return finance.DepreciationHistoryEntry{
		ID:               m.ID,
		TenantID:         m.TenantID,
		AssetID:          m.AssetID,
		Period:           m.Period,
		Method:           m.Method,
		Expense:          m.Expense,
		AccumulatedAfter: m.AccumulatedAfter,
		BookValueAfter:   m.BookValueAfter,
		JournalEntryID:   m.JournalEntryID,
		CreatedAt:        m.CreatedAt,
	}
}

// DepreciationHistoryModelFromDomain creates a persistence model from a history entry
func DepreciationHistoryModelFromDomain(e *finance.DepreciationHistoryEntry) *DepreciationHistoryModel {
	return &DepreciationHistoryModel{
		ID:               e.ID,
		TenantID:         e.TenantID,
		AssetID:          e.AssetID,
		Period:           e.Period,
		Method:           e.Method,
		Expense:          e.Expense,
		AccumulatedAfter: e.AccumulatedAfter,
		BookValueAfter:   e.BookValueAfter,
		JournalEntryID:   e.JournalEntryID,
		CreatedAt:        e.CreatedAt,
	}
}
