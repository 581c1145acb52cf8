package event

import (
	"context"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per finance event
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns nil: the audit trail covers every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with its type-specific fields
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *finance.DepreciationRunCompletedEvent:
		fields = append(fields,
			zap.String("period", e.Period.String()),
			zap.Int("processed", e.Processed),
			zap.Int("skipped", e.Skipped),
			zap.Int("failed", e.Failed),
			zap.String("total_expense", e.TotalExpense.String()),
		)
	case *finance.JournalEntryPostedEvent:
		fields = append(fields,
			zap.String("source", string(e.Source)),
			zap.String("total_amount", e.TotalAmount.String()),
		)
	case *finance.BankTransactionMatchedEvent:
		fields = append(fields,
			zap.String("invoice_id", e.InvoiceID.String()),
			zap.String("mode", string(e.Mode)),
		)
	case *finance.BankTransactionApprovedEvent:
		fields = append(fields,
			zap.String("invoice_id", e.InvoiceID.String()),
			zap.String("amount", e.Amount.String()),
			zap.String("direction", string(e.Direction)),
		)
	}

	h.logger.Info("domain event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
