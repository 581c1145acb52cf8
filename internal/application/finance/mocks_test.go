package finance

import (
	"context"
	"io"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Asset, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Asset), args.Error(1)
}

func (m *MockAssetRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.AssetFilter) ([]finance.Asset, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]finance.Asset), args.Error(1)
}

func (m *MockAssetRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.AssetFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAssetRepository) FindDepreciable(ctx context.Context, tenantID uuid.UUID) ([]finance.Asset, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]finance.Asset), args.Error(1)
}

func (m *MockAssetRepository) DepreciableTenants(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockAssetRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssetRepository) Save(ctx context.Context, asset *finance.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockAssetRepository) SaveWithLock(ctx context.Context, asset *finance.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockAssetRepository) RecordDepreciation(ctx context.Context, asset *finance.Asset, entry *finance.DepreciationHistoryEntry, journal *finance.JournalEntry) error {
	args := m.Called(ctx, asset, entry, journal)
	return args.Error(0)
}

func (m *MockAssetRepository) FindHistory(ctx context.Context, tenantID, assetID uuid.UUID) ([]finance.DepreciationHistoryEntry, error) {
	args := m.Called(ctx, tenantID, assetID)
	return args.Get(0).([]finance.DepreciationHistoryEntry), args.Error(1)
}

type MockJournalEntryRepository struct {
	mock.Mock
}

func (m *MockJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.JournalEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) Save(ctx context.Context, entry *finance.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.InvoiceFilter) ([]finance.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) FindOpen(ctx context.Context, tenantID uuid.UUID, kinds ...finance.InvoiceKind) ([]finance.Invoice, error) {
	args := m.Called(ctx, tenantID, kinds)
	return args.Get(0).([]finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	args := m.Called(ctx, tenantID, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) SumRemaining(ctx context.Context, tenantID uuid.UUID, kind finance.InvoiceKind) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, kind)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

type MockBankTransactionRepository struct {
	mock.Mock
}

func (m *MockBankTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankTransaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BankTransactionFilter) ([]finance.BankTransaction, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]finance.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BankTransactionFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBankTransactionRepository) FindPending(ctx context.Context, tenantID uuid.UUID) ([]finance.BankTransaction, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]finance.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindClaimed(ctx context.Context, tenantID uuid.UUID) ([]finance.BankTransaction, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]finance.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) ExistingReferences(ctx context.Context, tenantID uuid.UUID, references []string) (map[string]bool, error) {
	args := m.Called(ctx, tenantID, references)
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockBankTransactionRepository) SaveBatch(ctx context.Context, transactions []*finance.BankTransaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

func (m *MockBankTransactionRepository) SaveMatch(ctx context.Context, tx *finance.BankTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockBankTransactionRepository) Approve(ctx context.Context, tx *finance.BankTransaction, invoice *finance.Invoice, journal *finance.JournalEntry) error {
	args := m.Called(ctx, tx, invoice, journal)
	return args.Error(0)
}

// =============================================================================
// Mock Event Publisher and Statement Parser
// =============================================================================

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type MockStatementParser struct {
	mock.Mock
}

func (m *MockStatementParser) Parse(r io.Reader) ([]finance.StatementLine, error) {
	args := m.Called(r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.StatementLine), args.Error(1)
}
