package finance

import (
	"context"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetFilter defines filtering options for asset queries
type AssetFilter struct {
	shared.Filter
	Status *AssetStatus        // Filter by status
	Method *DepreciationMethod // Filter by depreciation method
}

// AssetRepository defines the interface for fixed asset persistence
type AssetRepository interface {
	// FindByIDForTenant finds an asset by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Asset, error)

	// FindAllForTenant lists assets with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter AssetFilter) ([]Asset, error)

	// CountForTenant counts assets matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter AssetFilter) (int64, error)

	// FindDepreciable returns all ACTIVE assets of a tenant
	FindDepreciable(ctx context.Context, tenantID uuid.UUID) ([]Asset, error)

	// DepreciableTenants lists tenants that own at least one ACTIVE asset
	DepreciableTenants(ctx context.Context) ([]uuid.UUID, error)

	// ExistsByCode checks if an asset code is taken within a tenant
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)

	// Save creates or updates an asset
	Save(ctx context.Context, asset *Asset) error

	// SaveWithLock updates an asset with optimistic locking (version check)
	SaveWithLock(ctx context.Context, asset *Asset) error

	// RecordDepreciation atomically stores the updated asset (version checked),
	// the history entry and, when given, the posting journal. A second entry
	// for the same asset and period returns ErrAlreadyExists.
	RecordDepreciation(ctx context.Context, asset *Asset, entry *DepreciationHistoryEntry, journal *JournalEntry) error

	// FindHistory returns the depreciation history of an asset ordered by period
	FindHistory(ctx context.Context, tenantID, assetID uuid.UUID) ([]DepreciationHistoryEntry, error)
}

// JournalEntryRepository defines the interface for journal persistence
type JournalEntryRepository interface {
	// FindByIDForTenant finds a journal entry with its lines
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)

	// Save stores a new journal entry with its lines
	Save(ctx context.Context, entry *JournalEntry) error
}

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	Kind     *InvoiceKind
	Status   *InvoiceStatus
	Category *PayableCategory
	OpenOnly bool // only invoices with an amount left to settle
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindAllForTenant lists invoices with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// CountForTenant counts invoices matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)

	// FindOpen returns every invoice of the given kinds that still has an amount to settle
	FindOpen(ctx context.Context, tenantID uuid.UUID, kinds ...InvoiceKind) ([]Invoice, error)

	// ExistsByNumber checks if an invoice number is taken within a tenant
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)

	// SumRemaining totals the open amount of one kind
	SumRemaining(ctx context.Context, tenantID uuid.UUID, kind InvoiceKind) (decimal.Decimal, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error
}

// BankTransactionFilter defines filtering options for bank transaction queries
type BankTransactionFilter struct {
	shared.Filter
	Status    *BankTransactionStatus
	Direction *TransactionDirection
}

// BankTransactionRepository defines the interface for bank transaction persistence
type BankTransactionRepository interface {
	// FindByIDForTenant finds a transaction by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankTransaction, error)

	// FindAllForTenant lists transactions with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BankTransactionFilter) ([]BankTransaction, error)

	// CountForTenant counts transactions matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter BankTransactionFilter) (int64, error)

	// FindPending returns all PENDING transactions ordered by transaction date
	FindPending(ctx context.Context, tenantID uuid.UUID) ([]BankTransaction, error)

	// FindClaimed returns the MATCHED transactions, which hold their invoices
	FindClaimed(ctx context.Context, tenantID uuid.UUID) ([]BankTransaction, error)

	// ExistingReferences returns the subset of references already imported
	ExistingReferences(ctx context.Context, tenantID uuid.UUID, references []string) (map[string]bool, error)

	// SaveBatch inserts newly imported transactions in one transaction
	SaveBatch(ctx context.Context, transactions []*BankTransaction) error

	// SaveMatch stores a match with optimistic locking on the version read
	SaveMatch(ctx context.Context, tx *BankTransaction) error

	// Approve moves the transaction to APPROVED only if it is still MATCHED
	// at the expected version, and in the same database transaction stores the
	// settled invoice and the posting journal. A lost race returns
	// ErrConcurrencyConflict.
	Approve(ctx context.Context, tx *BankTransaction, invoice *Invoice, journal *JournalEntry) error
}
