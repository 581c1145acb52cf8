package handler

import (
	financeapp "github.com/erp/fincalc/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// AssetHandler handles fixed asset and depreciation endpoints
type AssetHandler struct {
	BaseHandler
	assetService *financeapp.AssetService
}

// NewAssetHandler creates a new AssetHandler
func NewAssetHandler(assetService *financeapp.AssetService) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

// CreateAsset handles POST /assets
// Registers an ACTIVE asset. Migrated assets may carry opening accumulated depreciation.
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req financeapp.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	asset, err := h.assetService.CreateAsset(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, asset)
}

// ListAssets handles GET /assets
func (h *AssetHandler) ListAssets(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var filter financeapp.AssetListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	assets, total, err := h.assetService.ListAssets(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, assets, total, filter.Page, filter.PageSize)
}

// GetAsset handles GET /assets/:id
func (h *AssetHandler) GetAsset(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	assetID, ok := h.pathID(c, "id", "asset")
	if !ok {
		return
	}

	asset, err := h.assetService.GetAsset(c.Request.Context(), tenantID, assetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, asset)
}

// GetDepreciationHistory handles GET /assets/:id/depreciation-history
func (h *AssetHandler) GetDepreciationHistory(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	assetID, ok := h.pathID(c, "id", "asset")
	if !ok {
		return
	}

	history, err := h.assetService.GetDepreciationHistory(c.Request.Context(), tenantID, assetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// DisposeAsset handles POST /assets/:id/dispose
// Moves the asset to DISPOSED; later runs skip it
func (h *AssetHandler) DisposeAsset(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	assetID, ok := h.pathID(c, "id", "asset")
	if !ok {
		return
	}

	asset, err := h.assetService.DisposeAsset(c.Request.Context(), tenantID, assetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, asset)
}

// RunDepreciation handles POST /assets/depreciation/run
// Posts one period for every depreciable asset of the tenant. Per-asset failures are reported, not fatal.
func (h *AssetHandler) RunDepreciation(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req financeapp.RunDepreciationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.assetService.RunDepreciation(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
