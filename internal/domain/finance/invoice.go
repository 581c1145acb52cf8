package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/erp/fincalc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceKind distinguishes customer invoices from vendor bills
type InvoiceKind string

const (
	InvoiceKindReceivable InvoiceKind = "RECEIVABLE"
	InvoiceKindPayable    InvoiceKind = "PAYABLE"
)

// IsValid checks if the kind is known
func (k InvoiceKind) IsValid() bool {
	return k == InvoiceKindReceivable || k == InvoiceKindPayable
}

// PayableCategory classifies vendor bills
type PayableCategory string

const (
	PayableCategoryNone        PayableCategory = ""
	PayableCategoryPO          PayableCategory = "PO"
	PayableCategoryOperational PayableCategory = "OPERATIONAL"
)

// IsValid checks if the category is a known payable category
func (c PayableCategory) IsValid() bool {
	return c == PayableCategoryPO || c == PayableCategoryOperational
}

// legacyPrefixes maps the description tags older records used to carry
var legacyPrefixes = map[string]PayableCategory{
	"[PO] ":          PayableCategoryPO,
	"[OPERATIONAL] ": PayableCategoryOperational,
}

// CategoryFromLegacyDescription extracts a category from a tagged
// description such as "[PO] Office chairs" and returns the cleaned text.
func CategoryFromLegacyDescription(description string) (PayableCategory, string) {
	for prefix, category := range legacyPrefixes {
		if strings.HasPrefix(description, prefix) {
			return category, strings.TrimPrefix(description, prefix)
		}
	}
	return PayableCategoryNone, description
}

// InvoiceStatus is the settlement state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen          InvoiceStatus = "OPEN"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
)

// IsOpen reports whether the invoice still has an amount to settle
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusOpen || s == InvoiceStatusPartiallyPaid
}

// DefaultPPNRate is the standard VAT rate
var DefaultPPNRate = decimal.RequireFromString("0.11")

// DefaultPPh23Rate is the withholding rate on services
var DefaultPPh23Rate = decimal.RequireFromString("0.02")

// InvoiceTaxes is the tax computation for an invoice subtotal
type InvoiceTaxes struct {
	Subtotal valueobject.Money
	PPN      valueobject.Money
	PPh23    valueobject.Money
	Total    valueobject.Money
}

// ComputeInvoiceTaxes applies VAT and withholding to a subtotal. Each tax is
// rounded to whole rupiah before the total is formed.
func ComputeInvoiceTaxes(subtotal valueobject.Money, ppnRate, pph23Rate decimal.Decimal) (InvoiceTaxes, error) {
	ppn := subtotal.Multiply(ppnRate).RoundWhole()
	pph23 := subtotal.Multiply(pph23Rate).RoundWhole()

	gross, err := subtotal.Add(ppn)
	if err != nil {
		return InvoiceTaxes{}, err
	}
	total, err := gross.Subtract(pph23)
	if err != nil {
		return InvoiceTaxes{}, err
	}
	return InvoiceTaxes{Subtotal: subtotal, PPN: ppn, PPh23: pph23, Total: total}, nil
}

// Invoice is a receivable or payable that bank transactions settle
type Invoice struct {
	shared.TenantAggregateRoot
	Number           string
	Kind             InvoiceKind
	Category         PayableCategory
	CounterpartyName string
	Description      string
	Subtotal         decimal.Decimal
	PPNRate          decimal.Decimal
	PPNAmount        decimal.Decimal
	PPh23Rate        decimal.Decimal
	PPh23Amount      decimal.Decimal
	TotalAmount      decimal.Decimal
	RemainingAmount  decimal.Decimal
	Status           InvoiceStatus
	IssueDate        time.Time
	DueDate          *time.Time
	PaidAt           *time.Time
}

// NewInvoiceInput carries the data for a new invoice. Nil rates fall back to
// the defaults; PPh23 only applies to payables.
type NewInvoiceInput struct {
	Number           string
	Kind             InvoiceKind
	Category         PayableCategory
	CounterpartyName string
	Description      string
	Subtotal         decimal.Decimal
	PPNRate          *decimal.Decimal
	PPh23Rate        *decimal.Decimal
	IssueDate        time.Time
	DueDate          *time.Time
}

// NewInvoice creates an OPEN invoice with its taxes computed
func NewInvoice(tenantID uuid.UUID, in NewInvoiceInput) (*Invoice, error) {
	if strings.TrimSpace(in.Number) == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if !in.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INVOICE_KIND", fmt.Sprintf("Unknown invoice kind %q", in.Kind))
	}
	if strings.TrimSpace(in.CounterpartyName) == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty name cannot be empty")
	}
	if !in.Subtotal.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Subtotal must be positive")
	}

	category, description := in.Category, in.Description
	if category == PayableCategoryNone {
		category, description = CategoryFromLegacyDescription(in.Description)
	}
	switch in.Kind {
	case InvoiceKindPayable:
		if !category.IsValid() {
			return nil, shared.NewDomainError("INVALID_PAYABLE_CATEGORY", "Payable category must be PO or OPERATIONAL")
		}
	case InvoiceKindReceivable:
		if category != PayableCategoryNone {
			return nil, shared.NewDomainError("INVALID_PAYABLE_CATEGORY", "Receivables do not carry a payable category")
		}
	}

	ppnRate := DefaultPPNRate
	if in.PPNRate != nil {
		ppnRate = *in.PPNRate
	}
	pph23Rate := decimal.Zero
	if in.Kind == InvoiceKindPayable {
		pph23Rate = DefaultPPh23Rate
		if in.PPh23Rate != nil {
			pph23Rate = *in.PPh23Rate
		}
	}
	if ppnRate.IsNegative() || pph23Rate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rates cannot be negative")
	}

	taxes, err := ComputeInvoiceTaxes(valueobject.NewMoneyIDR(in.Subtotal), ppnRate, pph23Rate)
	if err != nil {
		return nil, err
	}
	if !taxes.Total.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice total must be positive")
	}

	issue := in.IssueDate
	if issue.IsZero() {
		issue = time.Now()
	}

	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              in.Number,
		Kind:                in.Kind,
		Category:            category,
		CounterpartyName:    in.CounterpartyName,
		Description:         description,
		Subtotal:            in.Subtotal,
		PPNRate:             ppnRate,
		PPNAmount:           taxes.PPN.Amount(),
		PPh23Rate:           pph23Rate,
		PPh23Amount:         taxes.PPh23.Amount(),
		TotalAmount:         taxes.Total.Amount(),
		RemainingAmount:     taxes.Total.Amount(),
		Status:              InvoiceStatusOpen,
		IssueDate:           issue,
		DueDate:             in.DueDate,
	}, nil
}

// AppliedAmount is the part of a payment that settles the invoice; any excess
// over the remaining amount is not applied
func (i *Invoice) AppliedAmount(amount decimal.Decimal) decimal.Decimal {
	return decimal.Min(amount, i.RemainingAmount)
}

// ApplyPayment reduces the remaining amount by the settled amount
func (i *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if !i.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to invoice in %s status", i.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	i.RemainingAmount = i.RemainingAmount.Sub(i.AppliedAmount(amount))
	if i.RemainingAmount.IsZero() {
		now := time.Now()
		i.Status = InvoiceStatusPaid
		i.PaidAt = &now
	} else {
		i.Status = InvoiceStatusPartiallyPaid
	}
	i.IncrementVersion()
	return nil
}

// Open returns the matcher's view of the invoice
func (i *Invoice) Open() OpenInvoice {
	return OpenInvoice{
		ID:               i.ID,
		Kind:             i.Kind,
		Number:           i.Number,
		CounterpartyName: i.CounterpartyName,
		RemainingAmount:  i.RemainingAmount,
	}
}
