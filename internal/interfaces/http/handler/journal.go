package handler

import (
	financeapp "github.com/erp/fincalc/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// JournalHandler handles manual journal entries
type JournalHandler struct {
	BaseHandler
	journalService *financeapp.JournalService
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journalService *financeapp.JournalService) *JournalHandler {
	return &JournalHandler{journalService: journalService}
}

// CreateJournalEntry handles POST /journal-entries
// The entry is stored only when total debit equals total credit exactly.
func (h *JournalHandler) CreateJournalEntry(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req financeapp.CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.journalService.CreateJournalEntry(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// GetJournalEntry handles GET /journal-entries/:id
func (h *JournalHandler) GetJournalEntry(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	entryID, ok := h.pathID(c, "id", "journal entry")
	if !ok {
		return
	}

	entry, err := h.journalService.GetJournalEntry(c.Request.Context(), tenantID, entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}
