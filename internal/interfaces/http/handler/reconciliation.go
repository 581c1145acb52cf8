package handler

import (
	"io"
	"strings"

	financeapp "github.com/erp/fincalc/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// statementFormField is the multipart field carrying an OFX statement
const statementFormField = "file"

// ReconciliationHandler handles bank statement import and matching
type ReconciliationHandler struct {
	BaseHandler
	reconciliationService *financeapp.BankReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(svc *financeapp.BankReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationService: svc}
}

// ImportTransactions handles POST /bank-reconciliation/import
// Stores each line as PENDING and auto-matches incoming lines against open receivables.
func (h *ReconciliationHandler) ImportTransactions(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req financeapp.ImportBankTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.reconciliationService.ImportTransactions(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.importResult(c, result)
}

// ImportStatement handles POST /bank-reconciliation/import/ofx
// Accepts a multipart upload in the "file" field or the raw OFX document as the body.
func (h *ReconciliationHandler) ImportStatement(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile(statementFormField)
		if err != nil {
			h.BadRequest(c, "Statement file is required")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			h.BadRequest(c, "Statement file could not be opened")
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.reconciliationService.ImportStatement(c.Request.Context(), tenantID, body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.importResult(c, result)
}

// importResult answers 201 when something new was stored and 200 for a pure replay
func (h *ReconciliationHandler) importResult(c *gin.Context, result *financeapp.ImportResponse) {
	if result.Imported == 0 {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// ListTransactions handles GET /bank-reconciliation
func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var filter financeapp.BankTransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	txs, total, err := h.reconciliationService.ListTransactions(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, txs, total, filter.Page, filter.PageSize)
}

// AutoMatch handles POST /bank-reconciliation/auto-match
func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.reconciliationService.AutoMatchPending(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ManualMatch handles POST /bank-reconciliation/:id/match
// The amounts may differ by at most the configured percentage of the invoice amount.
func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	txID, ok := h.pathID(c, "id", "bank transaction")
	if !ok {
		return
	}

	var req financeapp.ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tx, err := h.reconciliationService.ManualMatch(c.Request.Context(), tenantID, txID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Approve handles POST /bank-reconciliation/:id/approve
// Posts the cash journal and applies the payment to the invoice. Approval is final.
func (h *ReconciliationHandler) Approve(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	txID, ok := h.pathID(c, "id", "bank transaction")
	if !ok {
		return
	}

	tx, err := h.reconciliationService.Approve(c.Request.Context(), tenantID, txID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}
