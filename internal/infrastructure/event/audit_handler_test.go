package event

import (
	"context"
	"testing"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditLogHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	assert.Nil(t, h.EventTypes())

	tenantID := uuid.New()
	event := finance.NewDepreciationRunCompletedEvent(tenantID, finance.DepreciationBatchResult{
		Period:    finance.MustParsePeriod("2024-03"),
		Processed: 2,
		Skipped:   1,
	})
	require.NoError(t, h.Handle(context.Background(), event))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "audit", entry.LoggerName)
	fields := entry.ContextMap()
	assert.Equal(t, finance.EventTypeDepreciationRunCompleted, fields["event_type"])
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
	assert.Equal(t, "2024-03", fields["period"])
	assert.Equal(t, int64(2), fields["processed"])
	assert.Equal(t, decimal.Zero.String(), fields["total_expense"])
}
