package handler

import (
	financeapp "github.com/erp/fincalc/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// IncentiveHandler handles incentive simulation
type IncentiveHandler struct {
	BaseHandler
	incentiveService *financeapp.IncentiveService
}

// NewIncentiveHandler creates a new IncentiveHandler
func NewIncentiveHandler(incentiveService *financeapp.IncentiveService) *IncentiveHandler {
	return &IncentiveHandler{incentiveService: incentiveService}
}

// Simulate handles POST /incentives/simulate
// Resolves the role/metric plan, picks the tier for the achievement percentage and computes the payout
func (h *IncentiveHandler) Simulate(c *gin.Context) {
	var req financeapp.SimulateIncentiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.incentiveService.Simulate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
