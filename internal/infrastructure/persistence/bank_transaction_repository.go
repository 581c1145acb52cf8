package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/erp/fincalc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const bankTransactionBatchSize = 200

// GormBankTransactionRepository implements finance.BankTransactionRepository using GORM
type GormBankTransactionRepository struct {
	db *gorm.DB
}

// NewGormBankTransactionRepository creates a new GormBankTransactionRepository
func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

// FindByIDForTenant finds a transaction by ID for a tenant
func (r *GormBankTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankTransaction, error) {
	var model models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists transactions with filtering and pagination
func (r *GormBankTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BankTransactionFilter) ([]finance.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	query := r.filtered(ctx, tenantID, filter).
		Scopes(pageScope(filter.Filter, BankTransactionSortFields, "transaction_date"))
	if err := query.Find(&txModels).Error; err != nil {
		return nil, err
	}
	return bankTransactionsToDomain(txModels), nil
}

// CountForTenant counts transactions matching the filter
func (r *GormBankTransactionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BankTransactionFilter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, tenantID, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormBankTransactionRepository) filtered(ctx context.Context, tenantID uuid.UUID, filter finance.BankTransactionFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).
		Scopes(tenantScope(tenantID), searchScope(filter.Search, "sender_name", "reference", "description"))
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	return query
}

// FindPending returns all PENDING transactions in statement order
func (r *GormBankTransactionRepository) FindPending(ctx context.Context, tenantID uuid.UUID) ([]finance.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, finance.BankTransactionPending).
		Order("transaction_date ASC, created_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return bankTransactionsToDomain(txModels), nil
}

// FindClaimed returns the MATCHED transactions
func (r *GormBankTransactionRepository) FindClaimed(ctx context.Context, tenantID uuid.UUID) ([]finance.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, finance.BankTransactionMatched).
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return bankTransactionsToDomain(txModels), nil
}

// ExistingReferences returns the subset of references already imported
func (r *GormBankTransactionRepository) ExistingReferences(ctx context.Context, tenantID uuid.UUID, references []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(references) == 0 {
		return existing, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND reference IN ?", tenantID, references).
		Pluck("reference", &found).Error; err != nil {
		return nil, err
	}
	for _, ref := range found {
		existing[ref] = true
	}
	return existing, nil
}

// SaveBatch inserts newly imported transactions in one database transaction
func (r *GormBankTransactionRepository) SaveBatch(ctx context.Context, transactions []*finance.BankTransaction) error {
	if len(transactions) == 0 {
		return nil
	}
	txModels := make([]*models.BankTransactionModel, len(transactions))
	for i, t := range transactions {
		txModels[i] = models.BankTransactionModelFromDomain(t)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(txModels, bankTransactionBatchSize).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError("ALREADY_EXISTS", "Statement contains a reference that is already imported")
	}
	return err
}

// SaveMatch stores a match with optimistic locking on the version read.
// Approved transactions are never overwritten.
func (r *GormBankTransactionRepository) SaveMatch(ctx context.Context, t *finance.BankTransaction) error {
	result := r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).
		Where("id = ? AND tenant_id = ? AND status IN ? AND version = ?",
			t.ID, t.TenantID, []finance.BankTransactionStatus{
				finance.BankTransactionPending,
				finance.BankTransactionMatched,
			}, t.Version-1).
		Updates(map[string]any{
			"status":             t.Status,
			"matched_invoice_id": t.MatchedInvoiceID,
			"match_mode":         t.MatchMode,
			"matched_at":         t.MatchedAt,
			"version":            t.Version,
			"updated_at":         t.UpdatedAt,
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError("INVOICE_ALREADY_MATCHED", "Invoice is already claimed by another transaction")
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return concurrencyConflict("Bank transaction")
	}
	return nil
}

// Approve posts the journal, moves the transaction from MATCHED to APPROVED
// and stores the settled invoice in one database transaction. The status and
// version condition on the update makes approval a compare-and-swap, so only
// one of two concurrent approvals can win.
func (r *GormBankTransactionRepository) Approve(ctx context.Context, t *finance.BankTransaction, invoice *finance.Invoice, journal *finance.JournalEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if journal != nil {
			if err := tx.Create(models.JournalEntryModelFromDomain(journal)).Error; err != nil {
				return err
			}
		}

		approvedAt := t.ApprovedAt
		if approvedAt == nil {
			now := time.Now()
			approvedAt = &now
		}
		result := tx.Model(&models.BankTransactionModel{}).
			Where("id = ? AND tenant_id = ? AND status = ? AND version = ?",
				t.ID, t.TenantID, finance.BankTransactionMatched, t.Version-1).
			Updates(map[string]any{
				"status":           finance.BankTransactionApproved,
				"approved_at":      approvedAt,
				"journal_entry_id": t.JournalEntryID,
				"version":          t.Version,
				"updated_at":       t.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return concurrencyConflict("Bank transaction")
		}

		if invoice != nil {
			return saveInvoiceWithLock(tx, invoice)
		}
		return nil
	})
}

func bankTransactionsToDomain(txModels []models.BankTransactionModel) []finance.BankTransaction {
	transactions := make([]finance.BankTransaction, len(txModels))
	for i, model := range txModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions
}

var _ finance.BankTransactionRepository = (*GormBankTransactionRepository)(nil)
