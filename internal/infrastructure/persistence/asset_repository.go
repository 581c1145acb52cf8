package persistence

import (
	"context"
	"errors"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/erp/fincalc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAssetRepository implements finance.AssetRepository using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// FindByIDForTenant finds an asset by ID for a specific tenant
func (r *GormAssetRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Asset, error) {
	var model models.AssetModel
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

// FindAllForTenant lists assets of a tenant with filtering and pagination
func (r *GormAssetRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.AssetFilter) ([]finance.Asset, error) {
	var assetModels []models.AssetModel
	query := r.filtered(ctx, tenantID, filter).
		Scopes(pageScope(filter.Filter, AssetSortFields, "code"))
	if err := query.Find(&assetModels).Error; err != nil {
		return nil, err
	}
	return assetsToDomain(assetModels), nil
}

// CountForTenant counts assets matching the filter
func (r *GormAssetRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.AssetFilter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, tenantID, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAssetRepository) filtered(ctx context.Context, tenantID uuid.UUID, filter finance.AssetFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.AssetModel{}).
		Scopes(tenantScope(tenantID), searchScope(filter.Search, "code", "name"))
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	return query
}

// FindDepreciable returns all ACTIVE assets of a tenant ordered by code
func (r *GormAssetRepository) FindDepreciable(ctx context.Context, tenantID uuid.UUID) ([]finance.Asset, error) {
	var assetModels []models.AssetModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, finance.AssetStatusActive).
		Order("code ASC").
		Find(&assetModels).Error; err != nil {
		return nil, err
	}
	return assetsToDomain(assetModels), nil
}

// DepreciableTenants lists tenants that own at least one ACTIVE asset
func (r *GormAssetRepository) DepreciableTenants(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.AssetModel{}).
		Where("status = ?", finance.AssetStatusActive).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &tenantIDs).Error; err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

// ExistsByCode checks if an asset code is taken within a tenant
func (r *GormAssetRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AssetModel{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an asset
func (r *GormAssetRepository) Save(ctx context.Context, asset *finance.Asset) error {
	model := models.AssetModelFromDomain(asset)
	err := r.db.WithContext(ctx).Save(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// SaveWithLock updates an asset only if the stored version is the one it was
// read at. The aggregate has already incremented its version.
func (r *GormAssetRepository) SaveWithLock(ctx context.Context, asset *finance.Asset) error {
	return saveAssetWithLock(r.db.WithContext(ctx), asset)
}

func saveAssetWithLock(tx *gorm.DB, asset *finance.Asset) error {
	model := models.AssetModelFromDomain(asset)
	result := tx.Model(model).
		Where("tenant_id = ? AND version = ?", asset.TenantID, asset.Version-1).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return concurrencyConflict("Asset")
	}
	return nil
}

// RecordDepreciation stores the journal, the history entry and the updated
// asset in one database transaction
func (r *GormAssetRepository) RecordDepreciation(ctx context.Context, asset *finance.Asset, entry *finance.DepreciationHistoryEntry, journal *finance.JournalEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if journal != nil {
			if err := tx.Create(models.JournalEntryModelFromDomain(journal)).Error; err != nil {
				return err
			}
		}

		var existing int64
		if err := tx.Model(&models.DepreciationHistoryModel{}).
			Where("asset_id = ? AND period = ?", entry.AssetID, entry.Period).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return shared.NewDomainError("ALREADY_EXISTS", "Depreciation for "+entry.Period.String()+" is already posted")
		}
		if err := tx.Create(models.DepreciationHistoryModelFromDomain(entry)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.NewDomainError("ALREADY_EXISTS", "Depreciation for "+entry.Period.String()+" is already posted")
			}
			return err
		}

		return saveAssetWithLock(tx, asset)
	})
}

// FindHistory returns the depreciation history of an asset ordered by period
func (r *GormAssetRepository) FindHistory(ctx context.Context, tenantID, assetID uuid.UUID) ([]finance.DepreciationHistoryEntry, error) {
	var historyModels []models.DepreciationHistoryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND asset_id = ?", tenantID, assetID).
		Order("period ASC").
		Find(&historyModels).Error; err != nil {
		return nil, err
	}
	entries := make([]finance.DepreciationHistoryEntry, len(historyModels))
	for i, m := range historyModels {
		entries[i] = m.ToDomain()
	}
	return entries, nil
}

func assetsToDomain(assetModels []models.AssetModel) []finance.Asset {
	assets := make([]finance.Asset, len(assetModels))
	for i, model := range assetModels {
		assets[i] = *model.ToDomain()
	}
	return assets
}

var _ finance.AssetRepository = (*GormAssetRepository)(nil)
