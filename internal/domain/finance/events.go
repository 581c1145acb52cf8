package finance

import (
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeAssetRegistered          = "AssetRegistered"
	EventTypeAssetDepreciated         = "AssetDepreciated"
	EventTypeAssetFullyDepreciated    = "AssetFullyDepreciated"
	EventTypeAssetDisposed            = "AssetDisposed"
	EventTypeDepreciationRunCompleted = "DepreciationRunCompleted"
	EventTypeJournalEntryPosted       = "JournalEntryPosted"
	EventTypeBankTransactionMatched   = "BankTransactionMatched"
	EventTypeBankTransactionApproved  = "BankTransactionApproved"
)

const (
	aggregateTypeAsset           = "Asset"
	aggregateTypeDepreciationRun = "DepreciationRun"
	aggregateTypeJournalEntry    = "JournalEntry"
	aggregateTypeBankTransaction = "BankTransaction"
)

// AssetRegisteredEvent is raised when an asset is registered
type AssetRegisteredEvent struct {
	shared.BaseDomainEvent
	AssetID         uuid.UUID          `json:"asset_id"`
	Code            string             `json:"code"`
	AcquisitionCost decimal.Decimal    `json:"acquisition_cost"`
	Method          DepreciationMethod `json:"method"`
}

// NewAssetRegisteredEvent creates a new AssetRegisteredEvent
func NewAssetRegisteredEvent(a *Asset) *AssetRegisteredEvent {
	return &AssetRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetRegistered, aggregateTypeAsset, a.ID, a.TenantID),
		AssetID:         a.ID,
		Code:            a.Code,
		AcquisitionCost: a.AcquisitionCost,
		Method:          a.Method,
	}
}

// AssetDepreciatedEvent is raised for every posted period
type AssetDepreciatedEvent struct {
	shared.BaseDomainEvent
	AssetID        uuid.UUID       `json:"asset_id"`
	Period         Period          `json:"period"`
	Expense        decimal.Decimal `json:"expense"`
	BookValueAfter decimal.Decimal `json:"book_value_after"`
}

// NewAssetDepreciatedEvent creates a new AssetDepreciatedEvent
func NewAssetDepreciatedEvent(a *Asset, entry *DepreciationHistoryEntry) *AssetDepreciatedEvent {
	return &AssetDepreciatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetDepreciated, aggregateTypeAsset, a.ID, a.TenantID),
		AssetID:         a.ID,
		Period:          entry.Period,
		Expense:         entry.Expense,
		BookValueAfter:  entry.BookValueAfter,
	}
}

// AssetFullyDepreciatedEvent is raised when book value reaches residual value
type AssetFullyDepreciatedEvent struct {
	shared.BaseDomainEvent
	AssetID       uuid.UUID       `json:"asset_id"`
	Period        Period          `json:"period"`
	ResidualValue decimal.Decimal `json:"residual_value"`
}

// NewAssetFullyDepreciatedEvent creates a new AssetFullyDepreciatedEvent
func NewAssetFullyDepreciatedEvent(a *Asset, period Period) *AssetFullyDepreciatedEvent {
	return &AssetFullyDepreciatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetFullyDepreciated, aggregateTypeAsset, a.ID, a.TenantID),
		AssetID:         a.ID,
		Period:          period,
		ResidualValue:   a.ResidualValue,
	}
}

// AssetDisposedEvent is raised when an asset is retired
type AssetDisposedEvent struct {
	shared.BaseDomainEvent
	AssetID        uuid.UUID       `json:"asset_id"`
	BookValueAtEnd decimal.Decimal `json:"book_value_at_end"`
}

// NewAssetDisposedEvent creates a new AssetDisposedEvent
func NewAssetDisposedEvent(a *Asset) *AssetDisposedEvent {
	return &AssetDisposedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetDisposed, aggregateTypeAsset, a.ID, a.TenantID),
		AssetID:         a.ID,
		BookValueAtEnd:  a.CurrentBookValue,
	}
}

// DepreciationRunCompletedEvent summarizes a batch run for one tenant
type DepreciationRunCompletedEvent struct {
	shared.BaseDomainEvent
	Period       Period          `json:"period"`
	Processed    int             `json:"processed"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

// NewDepreciationRunCompletedEvent creates a new DepreciationRunCompletedEvent.
// The run has no aggregate of its own, so a fresh ID identifies it.
func NewDepreciationRunCompletedEvent(tenantID uuid.UUID, result DepreciationBatchResult) *DepreciationRunCompletedEvent {
	total := decimal.Zero
	for _, r := range result.Results {
		total = total.Add(r.Entry.Expense)
	}
	return &DepreciationRunCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepreciationRunCompleted, aggregateTypeDepreciationRun, uuid.New(), tenantID),
		Period:          result.Period,
		Processed:       result.Processed,
		Skipped:         result.Skipped,
		Failed:          len(result.Failures),
		TotalExpense:    total,
	}
}

// JournalEntryPostedEvent is raised when a balanced entry is created
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	JournalEntryID uuid.UUID       `json:"journal_entry_id"`
	Source         JournalSource   `json:"source"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(e *JournalEntry) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryPosted, aggregateTypeJournalEntry, e.ID, e.TenantID),
		JournalEntryID:  e.ID,
		Source:          e.Source,
		TotalAmount:     e.TotalDebit,
	}
}

// BankTransactionMatchedEvent is raised on auto or manual match
type BankTransactionMatchedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID `json:"transaction_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	Mode          MatchMode `json:"mode"`
}

// NewBankTransactionMatchedEvent creates a new BankTransactionMatchedEvent
func NewBankTransactionMatchedEvent(t *BankTransaction) *BankTransactionMatchedEvent {
	return &BankTransactionMatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankTransactionMatched, aggregateTypeBankTransaction, t.ID, t.TenantID),
		TransactionID:   t.ID,
		InvoiceID:       *t.MatchedInvoiceID,
		Mode:            t.MatchMode,
	}
}

// BankTransactionApprovedEvent is raised once a match is confirmed; payment
// posting downstream listens for it
type BankTransactionApprovedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID            `json:"transaction_id"`
	InvoiceID     uuid.UUID            `json:"invoice_id"`
	Amount        decimal.Decimal      `json:"amount"`
	Direction     TransactionDirection `json:"direction"`
}

// NewBankTransactionApprovedEvent creates a new BankTransactionApprovedEvent
func NewBankTransactionApprovedEvent(t *BankTransaction) *BankTransactionApprovedEvent {
	return &BankTransactionApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankTransactionApproved, aggregateTypeBankTransaction, t.ID, t.TenantID),
		TransactionID:   t.ID,
		InvoiceID:       *t.MatchedInvoiceID,
		Amount:          t.Amount,
		Direction:       t.Direction,
	}
}
