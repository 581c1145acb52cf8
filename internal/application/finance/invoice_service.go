package finance

import (
	"context"
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceService manages receivables and payables
type InvoiceService struct {
	repo finance.InvoiceRepository
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(repo finance.InvoiceRepository) *InvoiceService {
	return &InvoiceService{repo: repo}
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	Number           string           `json:"number" binding:"required,max=50"`
	Kind             string           `json:"kind" binding:"required,oneof=RECEIVABLE PAYABLE"`
	Category         string           `json:"category" binding:"omitempty,oneof=PO OPERATIONAL"`
	CounterpartyName string           `json:"counterparty_name" binding:"required,max=200"`
	Description      string           `json:"description" binding:"max=500"`
	Subtotal         decimal.Decimal  `json:"subtotal" binding:"required"`
	PPNRate          *decimal.Decimal `json:"ppn_rate"`
	PPh23Rate        *decimal.Decimal `json:"pph23_rate"`
	IssueDate        *time.Time       `json:"issue_date"`
	DueDate          *time.Time       `json:"due_date"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search   string `form:"search"`
	Kind     string `form:"kind" binding:"omitempty,oneof=RECEIVABLE PAYABLE"`
	Status   string `form:"status" binding:"omitempty,oneof=OPEN PARTIALLY_PAID PAID"`
	Category string `form:"category" binding:"omitempty,oneof=PO OPERATIONAL"`
	OpenOnly bool   `form:"open_only"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	Number           string          `json:"number"`
	Kind             string          `json:"kind"`
	Category         string          `json:"category,omitempty"`
	CounterpartyName string          `json:"counterparty_name"`
	Description      string          `json:"description,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	PPNRate          decimal.Decimal `json:"ppn_rate"`
	PPNAmount        decimal.Decimal `json:"ppn_amount"`
	PPh23Rate        decimal.Decimal `json:"pph23_rate"`
	PPh23Amount      decimal.Decimal `json:"pph23_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount"`
	Status           string          `json:"status"`
	IssueDate        time.Time       `json:"issue_date"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// CreateInvoice creates an invoice with its taxes computed
func (s *InvoiceService) CreateInvoice(ctx context.Context, tenantID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	exists, err := s.repo.ExistsByNumber(ctx, tenantID, req.Number)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoice number already exists")
	}

	in := finance.NewInvoiceInput{
		Number:           req.Number,
		Kind:             finance.InvoiceKind(req.Kind),
		Category:         finance.PayableCategory(req.Category),
		CounterpartyName: req.CounterpartyName,
		Description:      req.Description,
		Subtotal:         req.Subtotal,
		PPNRate:          req.PPNRate,
		PPh23Rate:        req.PPh23Rate,
		DueDate:          req.DueDate,
	}
	if req.IssueDate != nil {
		in.IssueDate = *req.IssueDate
	}

	invoice, err := finance.NewInvoice(tenantID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

// GetInvoice gets an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return toInvoiceResponse(invoice), nil
}

// ListInvoices lists invoices with filtering
func (s *InvoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := finance.InvoiceFilter{OpenOnly: filter.OpenOnly}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search
	domainFilter.Filter = domainFilter.Filter.Normalized()

	if filter.Kind != "" {
		kind := finance.InvoiceKind(filter.Kind)
		domainFilter.Kind = &kind
	}
	if filter.Status != "" {
		status := finance.InvoiceStatus(filter.Status)
		domainFilter.Status = &status
	}
	if filter.Category != "" {
		category := finance.PayableCategory(filter.Category)
		domainFilter.Category = &category
	}

	invoices, err := s.repo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i])
	}
	return responses, total, nil
}

func toInvoiceResponse(i *finance.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:               i.ID,
		TenantID:         i.TenantID,
		Number:           i.Number,
		Kind:             string(i.Kind),
		Category:         string(i.Category),
		CounterpartyName: i.CounterpartyName,
		Description:      i.Description,
		Subtotal:         i.Subtotal,
		PPNRate:          i.PPNRate,
		PPNAmount:        i.PPNAmount,
		PPh23Rate:        i.PPh23Rate,
		PPh23Amount:      i.PPh23Amount,
		TotalAmount:      i.TotalAmount,
		RemainingAmount:  i.RemainingAmount,
		Status:           string(i.Status),
		IssueDate:        i.IssueDate,
		DueDate:          i.DueDate,
		PaidAt:           i.PaidAt,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
		Version:          i.Version,
	}
}
