package models

import (
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalEntryModel is the persistence model for a posted journal entry
type JournalEntryModel struct {
	TenantAggregateModel
	TransactionDate time.Time             `gorm:"type:date;not null;index"`
	Description     string                `gorm:"type:varchar(500)"`
	Source          finance.JournalSource `gorm:"type:varchar(30);not null;index"`
	SourceID        *uuid.UUID            `gorm:"type:uuid;index"`
	TotalDebit      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalCredit     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Lines           []JournalLineModel    `gorm:"foreignKey:JournalEntryID;references:ID"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// JournalLineModel is one debit or credit line
type JournalLineModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	JournalEntryID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo         int             `gorm:"not null"`
	AccountID      string          `gorm:"type:varchar(50);not null;index"`
	Debit          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Credit         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Memo           string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the persistence model to a domain JournalEntry. Lines
// must be loaded in line order.
func (m *JournalEntryModel) ToDomain() *finance.JournalEntry {
	lines := make([]finance.JournalLine, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = finance.JournalLine{
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Memo:      l.Memo,
		}
	}
	return &finance.JournalEntry{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		TransactionDate:     m.TransactionDate,
		Description:         m.Description,
		Source:              m.Source,
		SourceID:            m.SourceID,
		Lines:               lines,
		TotalDebit:          m.TotalDebit,
		TotalCredit:         m.TotalCredit,
	}
}

// JournalEntryModelFromDomain creates a persistence model with its lines
func JournalEntryModelFromDomain(e *finance.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{
		TransactionDate: e.TransactionDate,
		Description:     e.Description,
		Source:          e.Source,
		SourceID:        e.SourceID,
		TotalDebit:      e.TotalDebit,
		TotalCredit:     e.TotalCredit,
		Lines:           make([]JournalLineModel, len(e.Lines)),
	}
	m.TenantAggregateModel.FromDomain(e.TenantAggregateRoot)
	for i, l := range e.Lines {
		m.Lines[i] = JournalLineModel{
			ID:             uuid.New(),
			JournalEntryID: e.ID,
			LineNo:         i + 1,
			AccountID:      l.AccountID,
			Debit:          l.Debit,
			Credit:         l.Credit,
			Memo:           l.Memo,
		}
	}
	return m
}
