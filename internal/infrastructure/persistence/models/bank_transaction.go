package models

import (
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankTransactionModel is the persistence model for an imported bank line
type BankTransactionModel struct {
	TenantAggregateModel
	Amount           decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	SenderName       string                        `gorm:"type:varchar(200)"`
	TransactionDate  time.Time                     `gorm:"type:date;not null;index"`
	Direction        finance.TransactionDirection  `gorm:"type:varchar(10);not null"`
	Reference        string                        `gorm:"type:varchar(100);index"`
	Description      string                        `gorm:"type:varchar(500)"`
	Status           finance.BankTransactionStatus `gorm:"type:varchar(20);not null;index"`
	MatchedInvoiceID *uuid.UUID                    `gorm:"type:uuid;index"`
	MatchMode        finance.MatchMode             `gorm:"type:varchar(10)"`
	MatchedAt        *time.Time
	ApprovedAt       *time.Time
	JournalEntryID   *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (BankTransactionModel) TableName() string {
	return "bank_transactions"
}

// ToDomain converts the persistence model to a domain BankTransaction
func (m *BankTransactionModel) ToDomain() *finance.BankTransaction {
	return &finance.BankTransaction{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		Amount:              m.Amount,
		SenderName:          m.SenderName,
		TransactionDate:     m.TransactionDate,
		Direction:           m.Direction,
		Reference:           m.Reference,
		Description:         m.Description,
		Status:              m.Status,
		MatchedInvoiceID:    m.MatchedInvoiceID,
		MatchMode:           m.MatchMode,
		MatchedAt:           m.MatchedAt,
		ApprovedAt:          m.ApprovedAt,
		JournalEntryID:      m.JournalEntryID,
	}
}

// BankTransactionModelFromDomain creates a persistence model from a domain BankTransaction
func BankTransactionModelFromDomain(t *finance.BankTransaction) *BankTransactionModel {
	m := &BankTransactionModel{
		Amount:           t.Amount,
		SenderName:       t.SenderName,
		TransactionDate:  t.TransactionDate,
		Direction:        t.Direction,
		Reference:        t.Reference,
		Description:      t.Description,
		Status:           t.Status,
		MatchedInvoiceID: t.MatchedInvoiceID,
		MatchMode:        t.MatchMode,
		MatchedAt:        t.MatchedAt,
		ApprovedAt:       t.ApprovedAt,
		JournalEntryID:   t.JournalEntryID,
	}
	m.TenantAggregateModel.FromDomain(t.TenantAggregateRoot)
	return m
}

// AllModels lists every model, in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&JournalEntryModel{},
		&JournalLineModel{},
		&AssetModel{},
		&DepreciationHistoryModel{},
		&InvoiceModel{},
		&BankTransactionModel{},
	}
}
