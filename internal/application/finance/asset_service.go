package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AssetService manages fixed assets and their monthly depreciation
type AssetService struct {
	repo           finance.AssetRepository
	scheduler      *finance.DepreciationScheduler
	accounts       PostingAccounts
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// AssetServiceConfig holds the dependencies of AssetService
type AssetServiceConfig struct {
	Repo           finance.AssetRepository
	Accounts       PostingAccounts
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

// NewAssetService creates a new AssetService
func NewAssetService(config AssetServiceConfig) *AssetService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{
		repo:           config.Repo,
		scheduler:      finance.NewDepreciationScheduler(),
		accounts:       config.Accounts,
		eventPublisher: config.EventPublisher,
		logger:         logger,
	}
}

// CreateAssetRequest represents a request to register an asset
type CreateAssetRequest struct {
	Code                    string           `json:"code" binding:"required,max=50"`
	Name                    string           `json:"name" binding:"required,max=200"`
	AcquisitionCost         decimal.Decimal  `json:"acquisition_cost" binding:"required"`
	ResidualValue           decimal.Decimal  `json:"residual_value"`
	UsefulLifeYears         int              `json:"useful_life_years" binding:"required,min=1,max=100"`
	Method                  string           `json:"method" binding:"required,oneof=STRAIGHT_LINE DECLINING_BALANCE"`
	AccumulatedDepreciation *decimal.Decimal `json:"accumulated_depreciation"`
	PeriodsDepreciated      int              `json:"periods_depreciated" binding:"min=0"`
	LastDepreciatedPeriod   string           `json:"last_depreciated_period" binding:"omitempty,period"`
}

// AssetListFilter defines filtering options for asset list queries
type AssetListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE FULLY_DEPRECIATED DISPOSED"`
	Method   string `form:"method" binding:"omitempty,oneof=STRAIGHT_LINE DECLINING_BALANCE"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// AssetResponse represents an asset in API responses
type AssetResponse struct {
	ID                      uuid.UUID       `json:"id"`
	TenantID                uuid.UUID       `json:"tenant_id"`
	Code                    string          `json:"code"`
	Name                    string          `json:"name"`
	AcquisitionCost         decimal.Decimal `json:"acquisition_cost"`
	ResidualValue           decimal.Decimal `json:"residual_value"`
	UsefulLifeYears         int             `json:"useful_life_years"`
	Method                  string          `json:"method"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	CurrentBookValue        decimal.Decimal `json:"current_book_value"`
	Status                  string          `json:"status"`
	PeriodsDepreciated      int             `json:"periods_depreciated"`
	LastDepreciatedPeriod   string          `json:"last_depreciated_period,omitempty"`
	DisposedAt              *time.Time      `json:"disposed_at,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
	Version                 int             `json:"version"`
}

// DepreciationHistoryResponse is one posted period
type DepreciationHistoryResponse struct {
	ID               uuid.UUID       `json:"id"`
	AssetID          uuid.UUID       `json:"asset_id"`
	Period           string          `json:"period"`
	Method           string          `json:"method"`
	Expense          decimal.Decimal `json:"expense"`
	AccumulatedAfter decimal.Decimal `json:"accumulated_after"`
	BookValueAfter   decimal.Decimal `json:"book_value_after"`
	JournalEntryID   *uuid.UUID      `json:"journal_entry_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// RunDepreciationRequest selects the period to depreciate
type RunDepreciationRequest struct {
	Period string `json:"period" binding:"required,period"`
}

// DepreciationFailureResponse is an asset the run could not process
type DepreciationFailureResponse struct {
	AssetID uuid.UUID `json:"asset_id"`
	Reason  string    `json:"reason"`
	Message string    `json:"message"`
}

// DepreciationRunResponse summarizes a depreciation run
type DepreciationRunResponse struct {
	Period          string                        `json:"period"`
	AssetsProcessed int                           `json:"assets_processed"`
	Skipped         int                           `json:"skipped"`
	Failures        []DepreciationFailureResponse `json:"failures"`
	TotalExpense    decimal.Decimal               `json:"total_expense"`
	Entries         []DepreciationHistoryResponse `json:"entries"`
}

// CreateAsset registers a new asset
func (s *AssetService) CreateAsset(ctx context.Context, tenantID uuid.UUID, req CreateAssetRequest) (*AssetResponse, error) {
	exists, err := s.repo.ExistsByCode(ctx, tenantID, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Asset code already exists")
	}

	in := finance.NewAssetInput{
		Code:               req.Code,
		Name:               req.Name,
		AcquisitionCost:    req.AcquisitionCost,
		ResidualValue:      req.ResidualValue,
		UsefulLifeYears:    req.UsefulLifeYears,
		Method:             finance.DepreciationMethod(req.Method),
		PeriodsDepreciated: req.PeriodsDepreciated,
	}
	if req.AccumulatedDepreciation != nil {
		in.AccumulatedDepreciation = *req.AccumulatedDepreciation
	}
	if req.LastDepreciatedPeriod != "" {
		p, err := finance.ParsePeriod(req.LastDepreciatedPeriod)
		if err != nil {
			return nil, err
		}
		in.LastDepreciatedPeriod = &p
	}

	asset, err := finance.NewAsset(tenantID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, asset); err != nil {
		return nil, err
	}
	publish(ctx, s.eventPublisher, s.logger, asset.GetDomainEvents()...)
	asset.ClearDomainEvents()

	return toAssetResponse(asset), nil
}

// GetAsset gets an asset by ID
func (s *AssetService) GetAsset(ctx context.Context, tenantID, id uuid.UUID) (*AssetResponse, error) {
	asset, err := s.findAsset(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toAssetResponse(asset), nil
}

// ListAssets lists assets with filtering
func (s *AssetService) ListAssets(ctx context.Context, tenantID uuid.UUID, filter AssetListFilter) ([]AssetResponse, int64, error) {
	domainFilter := finance.AssetFilter{}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search
	domainFilter.Filter = domainFilter.Filter.Normalized()

	if filter.Status != "" {
		status := finance.AssetStatus(filter.Status)
		domainFilter.Status = &status
	}
	if filter.Method != "" {
		method := finance.DepreciationMethod(filter.Method)
		domainFilter.Method = &method
	}

	assets, err := s.repo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AssetResponse, len(assets))
	for i := range assets {
		responses[i] = *toAssetResponse(&assets[i])
	}
	return responses, total, nil
}

// DisposeAsset retires an asset
func (s *AssetService) DisposeAsset(ctx context.Context, tenantID, id uuid.UUID) (*AssetResponse, error) {
	asset, err := s.findAsset(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := asset.Dispose(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, asset); err != nil {
		return nil, err
	}
	publish(ctx, s.eventPublisher, s.logger, asset.GetDomainEvents()...)
	asset.ClearDomainEvents()

	return toAssetResponse(asset), nil
}

// GetDepreciationHistory lists the posted periods of an asset
func (s *AssetService) GetDepreciationHistory(ctx context.Context, tenantID, id uuid.UUID) ([]DepreciationHistoryResponse, error) {
	if _, err := s.findAsset(ctx, tenantID, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.FindHistory(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	responses := make([]DepreciationHistoryResponse, len(entries))
	for i := range entries {
		responses[i] = toDepreciationHistoryResponse(&entries[i])
	}
	return responses, nil
}

// RunDepreciation charges one period for every ACTIVE asset of the tenant.
// Each asset is committed on its own; one failure never aborts the others.
func (s *AssetService) RunDepreciation(ctx context.Context, tenantID uuid.UUID, req RunDepreciationRequest) (*DepreciationRunResponse, error) {
	period, err := finance.ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}

	assets, err := s.repo.FindDepreciable(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load depreciable assets: %w", err)
	}
	ptrs := make([]*finance.Asset, len(assets))
	for i := range assets {
		ptrs[i] = &assets[i]
	}

	batch := s.scheduler.RunBatch(ptrs, period)
	committed := make([]finance.DepreciationResult, 0, len(batch.Results))
	for _, res := range batch.Results {
		err := s.commit(ctx, res)
		switch {
		case err == nil:
			committed = append(committed, res)
		case errors.Is(err, shared.ErrAlreadyExists):
			// another run posted this period first
			batch.Processed--
			batch.Skipped++
		default:
			batch.Processed--
			batch.Failures = append(batch.Failures, finance.DepreciationFailureFrom(res.Asset.ID, err))
			s.logger.Warn("depreciation not recorded",
				zap.String("asset_id", res.Asset.ID.String()),
				zap.String("period", period.String()),
				zap.Error(err))
		}
	}
	batch.Results = committed

	done := finance.NewDepreciationRunCompletedEvent(tenantID, batch)
	publish(ctx, s.eventPublisher, s.logger, done)

	s.logger.Info("depreciation run completed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("period", period.String()),
		zap.Int("processed", batch.Processed),
		zap.Int("skipped", batch.Skipped),
		zap.Int("failed", len(batch.Failures)),
		zap.String("total_expense", done.TotalExpense.String()))

	return toDepreciationRunResponse(batch, done.TotalExpense), nil
}

// RunDepreciationForAllTenants runs the period for every tenant that owns an
// ACTIVE asset. Tenant errors are collected; the remaining tenants still run.
func (s *AssetService) RunDepreciationForAllTenants(ctx context.Context, period finance.Period) ([]*DepreciationRunResponse, error) {
	tenants, err := s.repo.DepreciableTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list depreciable tenants: %w", err)
	}

	results := make([]*DepreciationRunResponse, 0, len(tenants))
	var errs []error
	for _, tenantID := range tenants {
		res, err := s.RunDepreciation(ctx, tenantID, RunDepreciationRequest{Period: period.String()})
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// commit persists one period: asset, history and journal in one transaction
func (s *AssetService) commit(ctx context.Context, res finance.DepreciationResult) error {
	journal, err := depreciationJournal(s.accounts, res.Asset, res.Entry)
	if err != nil {
		return err
	}
	journalID := journal.ID
	res.Entry.JournalEntryID = &journalID

	if err := s.repo.RecordDepreciation(ctx, res.Asset, res.Entry, journal); err != nil {
		return err
	}

	events := append(res.Asset.GetDomainEvents(), journal.GetDomainEvents()...)
	publish(ctx, s.eventPublisher, s.logger, events...)
	res.Asset.ClearDomainEvents()
	journal.ClearDomainEvents()
	return nil
}

func (s *AssetService) findAsset(ctx context.Context, tenantID, id uuid.UUID) (*finance.Asset, error) {
	asset, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Asset not found")
	}
	return asset, nil
}

func toAssetResponse(a *finance.Asset) *AssetResponse {
	resp := &AssetResponse{
		ID:                      a.ID,
		TenantID:                a.TenantID,
		Code:                    a.Code,
		Name:                    a.Name,
		AcquisitionCost:         a.AcquisitionCost,
		ResidualValue:           a.ResidualValue,
		UsefulLifeYears:         a.UsefulLifeYears,
		Method:                  string(a.Method),
		AccumulatedDepreciation: a.AccumulatedDepreciation,
		CurrentBookValue:        a.CurrentBookValue,
		Status:                  string(a.Status),
		PeriodsDepreciated:      a.PeriodsDepreciated,
		DisposedAt:              a.DisposedAt,
		CreatedAt:               a.CreatedAt,
		UpdatedAt:               a.UpdatedAt,
		Version:                 a.Version,
	}
	if a.LastDepreciatedPeriod != nil {
		resp.LastDepreciatedPeriod = a.LastDepreciatedPeriod.String()
	}
	return resp
}

func toDepreciationHistoryResponse(e *finance.DepreciationHistoryEntry) DepreciationHistoryResponse {
	return DepreciationHistoryResponse{
		ID:               e.ID,
		AssetID:          e.AssetID,
		Period:           e.Period.String(),
		Method:           string(e.Method),
		Expense:          e.Expense,
		AccumulatedAfter: e.AccumulatedAfter,
		BookValueAfter:   e.BookValueAfter,
		JournalEntryID:   e.JournalEntryID,
		CreatedAt:        e.CreatedAt,
	}
}

func toDepreciationRunResponse(batch finance.DepreciationBatchResult, total decimal.Decimal) *DepreciationRunResponse {
	failures := make([]DepreciationFailureResponse, len(batch.Failures))
	for i, f := range batch.Failures {
		failures[i] = DepreciationFailureResponse{AssetID: f.AssetID, Reason: f.Reason, Message: f.Message}
	}
	entries := make([]DepreciationHistoryResponse, len(batch.Results))
	for i, r := range batch.Results {
		entries[i] = toDepreciationHistoryResponse(r.Entry)
	}
	return &DepreciationRunResponse{
		Period:          batch.Period.String(),
		AssetsProcessed: batch.Processed,
		Skipped:         batch.Skipped,
		Failures:        failures,
		TotalExpense:    total,
		Entries:         entries,
	}
}
