package finance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BankReconciliationService imports bank transactions, matches them against
// open invoices and posts approved settlements
type BankReconciliationService struct {
	txRepo         finance.BankTransactionRepository
	invoiceRepo    finance.InvoiceRepository
	matcher        *finance.ReconciliationMatcher
	parser         finance.StatementParser
	accounts       PostingAccounts
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// BankReconciliationServiceConfig holds the dependencies of BankReconciliationService
type BankReconciliationServiceConfig struct {
	TransactionRepo finance.BankTransactionRepository
	InvoiceRepo     finance.InvoiceRepository
	Policy          finance.MatchPolicy
	Parser          finance.StatementParser
	Accounts        PostingAccounts
	EventPublisher  shared.EventPublisher
	Logger          *zap.Logger
}

// NewBankReconciliationService creates a new BankReconciliationService
func NewBankReconciliationService(config BankReconciliationServiceConfig) *BankReconciliationService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankReconciliationService{
		txRepo:         config.TransactionRepo,
		invoiceRepo:    config.InvoiceRepo,
		matcher:        finance.NewReconciliationMatcher(config.Policy),
		parser:         config.Parser,
		accounts:       config.Accounts,
		eventPublisher: config.EventPublisher,
		logger:         logger,
	}
}

// BankTransactionLine is one imported statement line
type BankTransactionLine struct {
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	SenderName      string          `json:"sender_name" binding:"max=200"`
	TransactionDate time.Time       `json:"transaction_date" binding:"required"`
	Direction       string          `json:"direction" binding:"omitempty,oneof=INCOMING OUTGOING"`
	Reference       string          `json:"reference" binding:"max=100"`
	Description     string          `json:"description" binding:"max=500"`
}

// ImportBankTransactionsRequest represents a JSON statement import
type ImportBankTransactionsRequest struct {
	Transactions []BankTransactionLine `json:"transactions" binding:"required,min=1,max=1000,dive"`
}

// ManualMatchRequest selects the invoice for a manual match
type ManualMatchRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
}

// BankTransactionListFilter defines filtering options for the transaction list
type BankTransactionListFilter struct {
	Status    string `form:"status" binding:"omitempty,oneof=PENDING MATCHED APPROVED"`
	Direction string `form:"direction" binding:"omitempty,oneof=INCOMING OUTGOING"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// BankTransactionResponse represents a bank transaction in API responses
type BankTransactionResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	Amount           decimal.Decimal `json:"amount"`
	SenderName       string          `json:"sender_name"`
	TransactionDate  time.Time       `json:"transaction_date"`
	Direction        string          `json:"direction"`
	Reference        string          `json:"reference,omitempty"`
	Description      string          `json:"description,omitempty"`
	Status           string          `json:"status"`
	MatchedInvoiceID *uuid.UUID      `json:"matched_invoice_id,omitempty"`
	MatchMode        string          `json:"match_mode,omitempty"`
	MatchedAt        *time.Time      `json:"matched_at,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	JournalEntryID   *uuid.UUID      `json:"journal_entry_id,omitempty"`
	Version          int             `json:"version"`
}

// ImportResponse summarizes an import
type ImportResponse struct {
	Imported     int                       `json:"imported"`
	Duplicates   int                       `json:"duplicates"`
	Matched      int                       `json:"matched"`
	Transactions []BankTransactionResponse `json:"transactions"`
}

// AutoMatchResponse summarizes a re-run of auto-matching
type AutoMatchResponse struct {
	Examined int `json:"examined"`
	Matched  int `json:"matched"`
}

// ImportTransactions stores statement lines and auto-matches them
func (s *BankReconciliationService) ImportTransactions(ctx context.Context, tenantID uuid.UUID, req ImportBankTransactionsRequest) (*ImportResponse, error) {
	inputs := make([]finance.NewBankTransactionInput, len(req.Transactions))
	for i, l := range req.Transactions {
		inputs[i] = finance.NewBankTransactionInput{
			Amount:          l.Amount,
			SenderName:      l.SenderName,
			TransactionDate: l.TransactionDate,
			Direction:       finance.TransactionDirection(l.Direction),
			Reference:       l.Reference,
			Description:     l.Description,
		}
	}
	return s.importInputs(ctx, tenantID, inputs)
}

// ImportStatement parses an exported statement file and imports its lines
func (s *BankReconciliationService) ImportStatement(ctx context.Context, tenantID uuid.UUID, r io.Reader) (*ImportResponse, error) {
	if s.parser == nil {
		return nil, shared.NewDomainError("STATEMENT_IMPORT_UNAVAILABLE", "No statement parser is configured")
	}
	lines, err := s.parser.Parse(r)
	if err != nil {
		s.logger.Info("statement rejected", zap.Error(err))
		return nil, shared.NewDomainError("INVALID_STATEMENT", fmt.Sprintf("Statement could not be read: %v", err))
	}
	inputs := make([]finance.NewBankTransactionInput, len(lines))
	for i, l := range lines {
		inputs[i] = l.Input()
	}
	return s.importInputs(ctx, tenantID, inputs)
}

func (s *BankReconciliationService) importInputs(ctx context.Context, tenantID uuid.UUID, inputs []finance.NewBankTransactionInput) (*ImportResponse, error) {
	txs := make([]*finance.BankTransaction, 0, len(inputs))
	refs := make([]string, 0, len(inputs))
	for i, in := range inputs {
		tx, err := finance.NewBankTransaction(tenantID, in)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return nil, shared.NewDomainError(de.Code, fmt.Sprintf("Transaction %d: %s", i, de.Message))
			}
			return nil, err
		}
		txs = append(txs, tx)
		if tx.Reference != "" {
			refs = append(refs, tx.Reference)
		}
	}

	existing := map[string]bool{}
	if len(refs) > 0 {
		var err error
		existing, err = s.txRepo.ExistingReferences(ctx, tenantID, refs)
		if err != nil {
			return nil, fmt.Errorf("check existing references: %w", err)
		}
	}

	fresh := make([]*finance.BankTransaction, 0, len(txs))
	seen := make(map[string]bool, len(refs))
	for _, tx := range txs {
		if tx.Reference != "" {
			if existing[tx.Reference] || seen[tx.Reference] {
				continue
			}
			seen[tx.Reference] = true
		}
		fresh = append(fresh, tx)
	}

	imported, err := s.autoMatch(ctx, tenantID, fresh)
	if err != nil {
		return nil, err
	}
	if len(imported) > 0 {
		if err := s.txRepo.SaveBatch(ctx, imported); err != nil {
			return nil, err
		}
	}

	resp := &ImportResponse{
		Imported:     len(imported),
		Duplicates:   len(txs) - len(fresh),
		Transactions: make([]BankTransactionResponse, len(imported)),
	}
	events := make([]shared.DomainEvent, 0)
	for i, tx := range imported {
		if tx.Status == finance.BankTransactionMatched {
			resp.Matched++
		}
		events = append(events, tx.GetDomainEvents()...)
		tx.ClearDomainEvents()
		resp.Transactions[i] = *toBankTransactionResponse(tx)
	}
	publish(ctx, s.eventPublisher, s.logger, events...)

	s.logger.Info("bank transactions imported",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("imported", resp.Imported),
		zap.Int("duplicates", resp.Duplicates),
		zap.Int("matched", resp.Matched))
	return resp, nil
}

// autoMatch runs the matcher over txs against the tenant's open invoices and
// returns the updated copies in order
func (s *BankReconciliationService) autoMatch(ctx context.Context, tenantID uuid.UUID, txs []*finance.BankTransaction) ([]*finance.BankTransaction, error) {
	if len(txs) == 0 {
		return txs, nil
	}
	claimed, err := s.txRepo.FindClaimed(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load claimed transactions: %w", err)
	}
	invoices, err := s.invoiceRepo.FindOpen(ctx, tenantID, finance.InvoiceKindReceivable, finance.InvoiceKindPayable)
	if err != nil {
		return nil, fmt.Errorf("load open invoices: %w", err)
	}

	all := make([]*finance.BankTransaction, 0, len(claimed)+len(txs))
	for i := range claimed {
		all = append(all, &claimed[i])
	}
	all = append(all, txs...)

	open := make([]finance.OpenInvoice, len(invoices))
	for i := range invoices {
		open[i] = invoices[i].Open()
	}

	outcomes := s.matcher.AutoMatch(all, open)
	out := make([]*finance.BankTransaction, 0, len(txs))
	for _, o := range outcomes[len(claimed):] {
		out = append(out, o.Transaction)
		if !o.Matched && len(o.Candidates) > 1 {
			s.logger.Info("bank transaction left pending with several candidates",
				zap.String("transaction_id", o.Transaction.ID.String()),
				zap.Int("candidates", len(o.Candidates)))
		}
	}
	return out, nil
}

// AutoMatchPending re-runs auto-matching over stored PENDING transactions,
// for example after new invoices were created
func (s *BankReconciliationService) AutoMatchPending(ctx context.Context, tenantID uuid.UUID) (*AutoMatchResponse, error) {
	pending, err := s.txRepo.FindPending(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*finance.BankTransaction, len(pending))
	for i := range pending {
		ptrs[i] = &pending[i]
	}

	updated, err := s.autoMatch(ctx, tenantID, ptrs)
	if err != nil {
		return nil, err
	}

	resp := &AutoMatchResponse{Examined: len(pending)}
	for _, tx := range updated {
		if tx.Status != finance.BankTransactionMatched {
			continue
		}
		if err := s.txRepo.SaveMatch(ctx, tx); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				s.logger.Warn("bank transaction changed while auto-matching",
					zap.String("transaction_id", tx.ID.String()))
				continue
			}
			return nil, err
		}
		resp.Matched++
		publish(ctx, s.eventPublisher, s.logger, tx.GetDomainEvents()...)
		tx.ClearDomainEvents()
	}
	return resp, nil
}

// ListTransactions lists bank transactions with filtering
func (s *BankReconciliationService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter BankTransactionListFilter) ([]BankTransactionResponse, int64, error) {
	domainFilter := finance.BankTransactionFilter{}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.OrderBy = "transaction_date"
	domainFilter.Filter = domainFilter.Filter.Normalized()

	if filter.Status != "" {
		status := finance.BankTransactionStatus(filter.Status)
		domainFilter.Status = &status
	}
	if filter.Direction != "" {
		direction := finance.TransactionDirection(filter.Direction)
		domainFilter.Direction = &direction
	}

	txs, err := s.txRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.txRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]BankTransactionResponse, len(txs))
	for i := range txs {
		responses[i] = *toBankTransactionResponse(&txs[i])
	}
	return responses, total, nil
}

// ManualMatch assigns a user-chosen invoice within the manual tolerance
func (s *BankReconciliationService) ManualMatch(ctx context.Context, tenantID, id uuid.UUID, req ManualMatchRequest) (*BankTransactionResponse, error) {
	tx, err := s.findTransaction(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	invoice, err := s.findInvoice(ctx, tenantID, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.txRepo.FindClaimed(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load claimed transactions: %w", err)
	}
	for _, c := range claimed {
		if c.ID != tx.ID && c.MatchedInvoiceID != nil && *c.MatchedInvoiceID == invoice.ID {
			return nil, shared.NewDomainError("INVOICE_ALREADY_MATCHED",
				fmt.Sprintf("Invoice %s is already matched to transaction %s", invoice.Number, c.ID))
		}
	}

	matched, err := s.matcher.ManualMatch(tx, invoice.Open())
	if err != nil {
		s.logger.Warn("manual match rejected",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return nil, err
	}
	if err := s.txRepo.SaveMatch(ctx, matched); err != nil {
		return nil, err
	}
	publish(ctx, s.eventPublisher, s.logger, matched.GetDomainEvents()...)
	matched.ClearDomainEvents()

	return toBankTransactionResponse(matched), nil
}

// Approve confirms a MATCHED transaction, settles the invoice and posts the
// cash journal in one unit of work
func (s *BankReconciliationService) Approve(ctx context.Context, tenantID, id uuid.UUID) (*BankTransactionResponse, error) {
	tx, err := s.findTransaction(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	approved, err := s.matcher.Approve(tx)
	if err != nil {
		return nil, err
	}

	invoice, err := s.findInvoice(ctx, tenantID, *approved.MatchedInvoiceID)
	if err != nil {
		return nil, err
	}
	applied := invoice.AppliedAmount(approved.Amount)
	if err := invoice.ApplyPayment(approved.Amount); err != nil {
		return nil, err
	}

	journal, err := settlementJournal(s.accounts, approved, invoice, applied)
	if err != nil {
		return nil, err
	}
	journalID := journal.ID
	approved.JournalEntryID = &journalID

	if err := s.txRepo.Approve(ctx, approved, invoice, journal); err != nil {
		return nil, err
	}

	events := append(approved.GetDomainEvents(), journal.GetDomainEvents()...)
	publish(ctx, s.eventPublisher, s.logger, events...)
	approved.ClearDomainEvents()
	journal.ClearDomainEvents()

	s.logger.Info("bank transaction approved",
		zap.String("transaction_id", approved.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("amount", approved.Amount.String()),
		zap.String("invoice_status", string(invoice.Status)))

	return toBankTransactionResponse(approved), nil
}

func (s *BankReconciliationService) findTransaction(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankTransaction, error) {
	tx, err := s.txRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Bank transaction not found")
	}
	return tx, nil
}

func (s *BankReconciliationService) findInvoice(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return invoice, nil
}

func toBankTransactionResponse(t *finance.BankTransaction) *BankTransactionResponse {
	return &BankTransactionResponse{
		ID:               t.ID,
		TenantID:         t.TenantID,
		Amount:           t.Amount,
		SenderName:       t.SenderName,
		TransactionDate:  t.TransactionDate,
		Direction:        string(t.Direction),
		Reference:        t.Reference,
		Description:      t.Description,
		Status:           string(t.Status),
		MatchedInvoiceID: t.MatchedInvoiceID,
		MatchMode:        string(t.MatchMode),
		MatchedAt:        t.MatchedAt,
		ApprovedAt:       t.ApprovedAt,
		JournalEntryID:   t.JournalEntryID,
		Version:          t.Version,
	}
}
