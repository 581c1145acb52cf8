package handler

import (
	financeapp "github.com/erp/fincalc/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// TaxHandler handles PPh21 estimation
type TaxHandler struct {
	BaseHandler
	taxService *financeapp.TaxService
}

// NewTaxHandler creates a new TaxHandler
func NewTaxHandler(taxService *financeapp.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

// Estimate handles POST /tax/estimate
// Progressive annual tax on salary and allowances less PTKP, divided by twelve
func (h *TaxHandler) Estimate(c *gin.Context) {
	var req financeapp.EstimateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.Success(c, h.taxService.Estimate(c.Request.Context(), req))
}
