package telemetry

import (
	"context"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// FinanceMetrics turns finance domain events into counters. It subscribes to
// the event bus like any other handler.
type FinanceMetrics struct {
	depreciationAssets  *Counter
	depreciationExpense *AmountCounter
	journalsPosted      *Counter
	matches             *Counter
	approvals           *Counter
	approvedAmount      *AmountCounter
	disposals           *Counter
}

// NewFinanceMetrics creates the finance instruments on meter
func NewFinanceMetrics(meter metric.Meter) (*FinanceMetrics, error) {
	var (
		m   FinanceMetrics
		err error
	)
	if m.depreciationAssets, err = NewCounter(meter, "fincalc_depreciation_assets_total",
		"Assets handled by depreciation runs, by outcome", "{asset}"); err != nil {
		return nil, err
	}
	if m.depreciationExpense, err = NewAmountCounter(meter, "fincalc_depreciation_expense_total",
		"Depreciation expense posted"); err != nil {
		return nil, err
	}
	if m.journalsPosted, err = NewCounter(meter, "fincalc_journal_entries_posted_total",
		"Balanced journal entries posted, by source", "{entry}"); err != nil {
		return nil, err
	}
	if m.matches, err = NewCounter(meter, "fincalc_bank_matches_total",
		"Bank transactions matched to an invoice, by mode", "{transaction}"); err != nil {
		return nil, err
	}
	if m.approvals, err = NewCounter(meter, "fincalc_bank_approvals_total",
		"Bank transactions approved, by direction", "{transaction}"); err != nil {
		return nil, err
	}
	if m.approvedAmount, err = NewAmountCounter(meter, "fincalc_bank_approved_amount_total",
		"Amount settled by approved bank transactions"); err != nil {
		return nil, err
	}
	if m.disposals, err = NewCounter(meter, "fincalc_asset_disposals_total",
		"Assets disposed", "{asset}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// EventTypes lists the events that move a counter
func (m *FinanceMetrics) EventTypes() []string {
	return []string{
		finance.EventTypeDepreciationRunCompleted,
		finance.EventTypeJournalEntryPosted,
		finance.EventTypeBankTransactionMatched,
		finance.EventTypeBankTransactionApproved,
		finance.EventTypeAssetDisposed,
	}
}

// Handle records the event
func (m *FinanceMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	tenant := AttrTenantID.String(event.TenantID().String())

	switch e := event.(type) {
	case *finance.DepreciationRunCompletedEvent:
		m.depreciationAssets.Add(ctx, int64(e.Processed), tenant, AttrOutcome.String("processed"))
		m.depreciationAssets.Add(ctx, int64(e.Skipped), tenant, AttrOutcome.String("skipped"))
		m.depreciationAssets.Add(ctx, int64(e.Failed), tenant, AttrOutcome.String("failed"))
		m.depreciationExpense.Add(ctx, e.TotalExpense.InexactFloat64(), tenant)
	case *finance.JournalEntryPostedEvent:
		m.journalsPosted.Inc(ctx, tenant, AttrSource.String(string(e.Source)))
	case *finance.BankTransactionMatchedEvent:
		m.matches.Inc(ctx, tenant, AttrMatchMode.String(string(e.Mode)))
	case *finance.BankTransactionApprovedEvent:
		direction := AttrDirection.String(string(e.Direction))
		m.approvals.Inc(ctx, tenant, direction)
		m.approvedAmount.Add(ctx, e.Amount.Abs().InexactFloat64(), tenant, direction)
	case *finance.AssetDisposedEvent:
		m.disposals.Inc(ctx, tenant)
	}
	return nil
}

var _ shared.EventHandler = (*FinanceMetrics)(nil)
