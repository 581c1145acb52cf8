package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInvoiceService_CreateInvoice(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("payable with legacy prefix", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		svc := NewInvoiceService(repo)
		repo.On("ExistsByNumber", ctx, tenantID, "BILL-7").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*finance.Invoice")).Return(nil)

		resp, err := svc.CreateInvoice(ctx, tenantID, CreateInvoiceRequest{
			Number:           "BILL-7",
			Kind:             "PAYABLE",
			CounterpartyName: "CV Andalas",
			Description:      "[PO] Office chairs",
			Subtotal:         decimal.NewFromInt(2_000_000),
		})
		require.NoError(t, err)
		assert.Equal(t, "PO", resp.Category)
		assert.Equal(t, "Office chairs", resp.Description)
		assert.True(t, resp.PPNAmount.Equal(decimal.NewFromInt(220_000)))
		assert.True(t, resp.PPh23Amount.Equal(decimal.NewFromInt(40_000)))
		assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(2_180_000)))
		assert.Equal(t, "OPEN", resp.Status)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate number", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		svc := NewInvoiceService(repo)
		repo.On("ExistsByNumber", ctx, tenantID, "INV-1").Return(true, nil)

		_, err := svc.CreateInvoice(ctx, tenantID, CreateInvoiceRequest{
			Number: "INV-1", Kind: "RECEIVABLE", CounterpartyName: "A", Subtotal: decimal.NewFromInt(1),
		})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_ListInvoices(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := new(MockInvoiceRepository)
	svc := NewInvoiceService(repo)

	inv, err := finance.NewInvoice(tenantID, finance.NewInvoiceInput{
		Number: "INV-1", Kind: finance.InvoiceKindReceivable, CounterpartyName: "A", Subtotal: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	isReceivable := mock.MatchedBy(func(f finance.InvoiceFilter) bool {
		return f.Kind != nil && *f.Kind == finance.InvoiceKindReceivable && f.Page == 1 && f.PageSize == 20 && f.OpenOnly
	})
	repo.On("FindAllForTenant", ctx, tenantID, isReceivable).Return([]finance.Invoice{*inv}, nil)
	repo.On("CountForTenant", ctx, tenantID, isReceivable).Return(int64(1), nil)

	items, total, err := svc.ListInvoices(ctx, tenantID, InvoiceListFilter{Kind: "RECEIVABLE", OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "INV-1", items[0].Number)
}
