package finance

import (
	"context"
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// JournalService validates and persists manual journal entries
type JournalService struct {
	repo           finance.JournalEntryRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewJournalService creates a new JournalService
func NewJournalService(repo finance.JournalEntryRepository, publisher shared.EventPublisher, logger *zap.Logger) *JournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalService{repo: repo, eventPublisher: publisher, logger: logger}
}

// JournalLineRequest is one debit or credit line
type JournalLineRequest struct {
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo"`
}

// CreateJournalEntryRequest represents a request to post a manual journal entry
type CreateJournalEntryRequest struct {
	TransactionDate time.Time            `json:"transaction_date" binding:"required"`
	Description     string               `json:"description" binding:"max=500"`
	Entries         []JournalLineRequest `json:"entries"`
}

// JournalLineResponse is a stored journal line
type JournalLineResponse struct {
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// JournalEntryResponse represents a journal entry in API responses
type JournalEntryResponse struct {
	ID              uuid.UUID             `json:"id"`
	TenantID        uuid.UUID             `json:"tenant_id"`
	TransactionDate time.Time             `json:"transaction_date"`
	Description     string                `json:"description"`
	Source          string                `json:"source"`
	SourceID        *uuid.UUID            `json:"source_id,omitempty"`
	TotalDebit      decimal.Decimal       `json:"total_debit"`
	TotalCredit     decimal.Decimal       `json:"total_credit"`
	Lines           []JournalLineResponse `json:"entries"`
	CreatedAt       time.Time             `json:"created_at"`
}

// CreateJournalEntry validates the lines and stores the entry. A rejected
// journal returns *finance.JournalRejection and nothing is stored.
func (s *JournalService) CreateJournalEntry(ctx context.Context, tenantID uuid.UUID, req CreateJournalEntryRequest) (*JournalEntryResponse, error) {
	lines := make([]finance.JournalLine, len(req.Entries))
	for i, l := range req.Entries {
		lines[i] = finance.JournalLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Memo: l.Memo}
	}

	entry, err := finance.NewJournalEntry(tenantID, req.TransactionDate, req.Description, finance.JournalSourceManual, nil, lines)
	if err != nil {
		s.logger.Warn("journal entry rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, err
	}

	if err := s.repo.Save(ctx, entry); err != nil {
		return nil, err
	}
	publish(ctx, s.eventPublisher, s.logger, entry.GetDomainEvents()...)
	entry.ClearDomainEvents()

	return toJournalEntryResponse(entry), nil
}

// GetJournalEntry gets a journal entry by ID
func (s *JournalService) GetJournalEntry(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntryResponse, error) {
	entry, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Journal entry not found")
	}
	return toJournalEntryResponse(entry), nil
}

func toJournalEntryResponse(e *finance.JournalEntry) *JournalEntryResponse {
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Memo: l.Memo}
	}
	return &JournalEntryResponse{
		ID:              e.ID,
		TenantID:        e.TenantID,
		TransactionDate: e.TransactionDate,
		Description:     e.Description,
		Source:          string(e.Source),
		SourceID:        e.SourceID,
		TotalDebit:      e.TotalDebit,
		TotalCredit:     e.TotalCredit,
		Lines:           lines,
		CreatedAt:       e.CreatedAt,
	}
}

// publish sends events best-effort; a failed publish never fails the operation
func publish(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events ...shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.String("first_event_type", events[0].EventType()),
			zap.Error(err))
	}
}
