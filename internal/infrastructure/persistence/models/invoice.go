package models

import (
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for receivable and payable invoices
type InvoiceModel struct {
	TenantAggregateModel
	Number           string                  `gorm:"type:varchar(50);not null"`
	Kind             finance.InvoiceKind     `gorm:"type:varchar(20);not null;index"`
	Category         finance.PayableCategory `gorm:"type:varchar(20)"`
	CounterpartyName string                  `gorm:"type:varchar(200);not null"`
	Description      string                  `gorm:"type:varchar(500)"`
	Subtotal         decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	PPNRate          decimal.Decimal         `gorm:"column:ppn_rate;type:decimal(6,4);not null"`
	PPNAmount        decimal.Decimal         `gorm:"column:ppn_amount;type:decimal(18,4);not null"`
	PPh23Rate        decimal.Decimal         `gorm:"column:pph23_rate;type:decimal(6,4);not null"`
	PPh23Amount      decimal.Decimal         `gorm:"column:pph23_amount;type:decimal(18,4);not null"`
	TotalAmount      decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	RemainingAmount  decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Status           finance.InvoiceStatus   `gorm:"type:varchar(20);not null;index"`
	IssueDate        time.Time               `gorm:"type:date;not null"`
	DueDate          *time.Time              `gorm:"type:date"`
	PaidAt           *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	return &finance.Invoice{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		Number:              m.Number,
		Kind:                m.Kind,
		Category:            m.Category,
		CounterpartyName:    m.CounterpartyName,
		Description:         m.Description,
		Subtotal:            m.Subtotal,
		PPNRate:             m.PPNRate,
		PPNAmount:           m.PPNAmount,
		PPh23Rate:           m.PPh23Rate,
		PPh23Amount:         m.PPh23Amount,
		TotalAmount:         m.TotalAmount,
		RemainingAmount:     m.RemainingAmount,
		Status:              m.Status,
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		PaidAt:              m.PaidAt,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(i *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Number:           i.Number,
		Kind:             i.Kind,
		Category:         i.Category,
		CounterpartyName: i.CounterpartyName,
		Description:      i.Description,
		Subtotal:         i.Subtotal,
		PPNRate:          i.PPNRate,
		PPNAmount:        i.PPNAmount,
		PPh23Rate:        i.PPh23Rate,
		PPh23Amount:      i.PPh23Amount,
		TotalAmount:      i.TotalAmount,
		RemainingAmount:  i.RemainingAmount,
		Status:           i.Status,
		IssueDate:        i.IssueDate,
		DueDate:          i.DueDate,
		PaidAt:           i.PaidAt,
	}
	m.TenantAggregateModel.FromDomain(i.TenantAggregateRoot)
	return m
}
