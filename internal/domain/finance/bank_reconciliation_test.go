package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(t *testing.T, amount int64, sender string) *BankTransaction {
	t.Helper()
	tx, err := NewBankTransaction(uuid.New(), NewBankTransactionInput{
		Amount:          idr(amount),
		SenderName:      sender,
		TransactionDate: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return tx
}

func receivable(amount int64, customer string) OpenInvoice {
	return OpenInvoice{
		ID:               uuid.New(),
		Kind:             InvoiceKindReceivable,
		Number:           "INV-" + customer,
		CounterpartyName: customer,
		RemainingAmount:  idr(amount),
	}
}

func TestNamesOverlap(t *testing.T) {
	tests := []struct {
		sender, customer string
		want             bool
	}{
		{"PT Shell Lenteng", "PT. Shell Indonesia - Lenteng Agung 1", true},
		{"SHELL LENTENG", "PT. Shell Indonesia", true},
		{"Budi Santoso", "budi", true},
		{"Andi", "PT Maju Jaya", false},
		{"", "PT Maju Jaya", false},
		{"Andi", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.sender+"/"+tt.customer, func(t *testing.T) {
			assert.Equal(t, tt.want, NamesOverlap(tt.sender, tt.customer))
		})
	}
}

func TestReconciliationMatcher_AutoMatch(t *testing.T) {
	m := NewReconciliationMatcher(DefaultMatchPolicy())

	t.Run("single exact candidate is matched", func(t *testing.T) {
		tx := newTestTransaction(t, 367_461, "PT Shell Lenteng")
		inv := receivable(367_461, "PT. Shell Indonesia - Lenteng Agung 1")

		outcomes := m.AutoMatch([]*BankTransaction{tx}, []OpenInvoice{inv, receivable(367_461, "CV Andalas")})
		require.Len(t, outcomes, 1)
		got := outcomes[0]
		assert.True(t, got.Matched)
		assert.Equal(t, BankTransactionMatched, got.Transaction.Status)
		assert.Equal(t, inv.ID, *got.Transaction.MatchedInvoiceID)
		assert.Equal(t, MatchModeAuto, got.Transaction.MatchMode)

		// input untouched
		assert.Equal(t, BankTransactionPending, tx.Status)
		assert.Nil(t, tx.MatchedInvoiceID)
	})

	t.Run("two candidates stay pending", func(t *testing.T) {
		tx := newTestTransaction(t, 1_000_000, "PT Shell Lenteng")
		outcomes := m.AutoMatch([]*BankTransaction{tx}, []OpenInvoice{
			receivable(1_000_000, "PT Shell Indonesia"),
			receivable(1_000_000, "PT Pertamina"),
		})
		assert.False(t, outcomes[0].Matched)
		assert.Len(t, outcomes[0].Candidates, 2)
		assert.Equal(t, BankTransactionPending, outcomes[0].Transaction.Status)
	})

	t.Run("no candidate stays pending", func(t *testing.T) {
		tx := newTestTransaction(t, 1_000_000, "Andi")
		outcomes := m.AutoMatch([]*BankTransaction{tx}, []OpenInvoice{receivable(1_000_000, "PT Maju Jaya")})
		assert.False(t, outcomes[0].Matched)
		assert.Empty(t, outcomes[0].Candidates)
	})

	t.Run("amount must be within one rupiah", func(t *testing.T) {
		tx := newTestTransaction(t, 1_000_000, "Budi")
		near := receivable(1_000_000, "Budi Santoso")
		near.RemainingAmount = decimal.RequireFromString("1000000.50")
		far := receivable(1_000_001, "Budi Santoso")

		assert.True(t, m.IsCandidate(tx, near))
		assert.False(t, m.IsCandidate(tx, far))
	})

	t.Run("direction selects invoice kind", func(t *testing.T) {
		tx := newTestTransaction(t, 500_000, "Budi")
		payable := receivable(500_000, "Budi")
		payable.Kind = InvoiceKindPayable
		assert.False(t, m.IsCandidate(tx, payable))

		tx.Direction = DirectionOutgoing
		assert.True(t, m.IsCandidate(tx, payable))
	})

	t.Run("claimed invoices are excluded", func(t *testing.T) {
		inv := receivable(750_000, "Budi Santoso")
		held := newTestTransaction(t, 750_000, "Budi")
		require.NoError(t, held.Match(inv.ID, MatchModeManual))

		pending := newTestTransaction(t, 750_000, "Budi")
		outcomes := m.AutoMatch([]*BankTransaction{held, pending}, []OpenInvoice{inv})
		assert.Equal(t, BankTransactionMatched, outcomes[0].Transaction.Status)
		assert.False(t, outcomes[1].Matched)
	})

	t.Run("approved partial payment releases the remainder", func(t *testing.T) {
		inv := receivable(50_000, "Budi Santoso")
		approved := newTestTransaction(t, 950_000, "Budi")
		require.NoError(t, approved.Match(inv.ID, MatchModeManual))
		require.NoError(t, approved.Approve())

		rest := newTestTransaction(t, 50_000, "Budi")
		outcomes := m.AutoMatch([]*BankTransaction{approved, rest}, []OpenInvoice{inv})
		assert.Equal(t, BankTransactionApproved, outcomes[0].Transaction.Status)
		assert.True(t, outcomes[1].Matched)
		assert.Equal(t, inv.ID, *outcomes[1].Transaction.MatchedInvoiceID)
	})

	t.Run("an invoice is matched at most once per run", func(t *testing.T) {
		inv := receivable(750_000, "Budi Santoso")
		first := newTestTransaction(t, 750_000, "Budi")
		second := newTestTransaction(t, 750_000, "Budi")

		outcomes := m.AutoMatch([]*BankTransaction{first, second}, []OpenInvoice{inv})
		assert.True(t, outcomes[0].Matched)
		assert.False(t, outcomes[1].Matched)
	})
}

func TestReconciliationMatcher_ManualMatch(t *testing.T) {
	m := NewReconciliationMatcher(DefaultMatchPolicy())

	t.Run("within ten percent", func(t *testing.T) {
		tx := newTestTransaction(t, 900_000, "Anyone")
		inv := receivable(1_000_000, "Someone else")

		out, err := m.ManualMatch(tx, inv)
		require.NoError(t, err)
		assert.Equal(t, BankTransactionMatched, out.Status)
		assert.Equal(t, MatchModeManual, out.MatchMode)
		assert.Equal(t, BankTransactionPending, tx.Status)
	})

	t.Run("outside ten percent", func(t *testing.T) {
		tx := newTestTransaction(t, 899_999, "Anyone")
		_, err := m.ManualMatch(tx, receivable(1_000_000, "X"))
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "AMOUNT_OUT_OF_TOLERANCE", de.Code)
	})

	t.Run("re-match from MATCHED", func(t *testing.T) {
		tx := newTestTransaction(t, 1_000_000, "Anyone")
		first, err := m.ManualMatch(tx, receivable(1_000_000, "A"))
		require.NoError(t, err)

		other := receivable(1_050_000, "B")
		second, err := m.ManualMatch(first, other)
		require.NoError(t, err)
		assert.Equal(t, other.ID, *second.MatchedInvoiceID)
	})

	t.Run("approved cannot be re-matched", func(t *testing.T) {
		tx := newTestTransaction(t, 1_000_000, "Anyone")
		matched, err := m.ManualMatch(tx, receivable(1_000_000, "A"))
		require.NoError(t, err)
		approved, err := m.Approve(matched)
		require.NoError(t, err)

		_, err = m.ManualMatch(approved, receivable(1_000_000, "B"))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("wrong invoice kind", func(t *testing.T) {
		tx := newTestTransaction(t, 1_000_000, "Anyone")
		inv := receivable(1_000_000, "A")
		inv.Kind = InvoiceKindPayable
		_, err := m.ManualMatch(tx, inv)
		assert.Error(t, err)
	})

	t.Run("settled invoice", func(t *testing.T) {
		tx := newTestTransaction(t, 1_000_000, "Anyone")
		_, err := m.ManualMatch(tx, receivable(0, "A"))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestReconciliationMatcher_Approve(t *testing.T) {
	m := NewReconciliationMatcher(DefaultMatchPolicy())

	t.Run("pending cannot be approved", func(t *testing.T) {
		_, err := m.Approve(newTestTransaction(t, 10, "A"))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("matched becomes approved once", func(t *testing.T) {
		tx := newTestTransaction(t, 10, "A")
		require.NoError(t, tx.Match(uuid.New(), MatchModeManual))

		approved, err := m.Approve(tx)
		require.NoError(t, err)
		assert.Equal(t, BankTransactionApproved, approved.Status)
		assert.NotNil(t, approved.ApprovedAt)

		events := approved.GetDomainEvents()
		assert.Equal(t, EventTypeBankTransactionApproved, events[len(events)-1].EventType())

		_, err = m.Approve(approved)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestNewBankTransaction(t *testing.T) {
	_, err := NewBankTransaction(uuid.New(), NewBankTransactionInput{Amount: idr(0), TransactionDate: time.Now()})
	assert.Error(t, err)

	_, err = NewBankTransaction(uuid.New(), NewBankTransactionInput{Amount: idr(1)})
	assert.Error(t, err)

	_, err = NewBankTransaction(uuid.New(), NewBankTransactionInput{Amount: idr(1), TransactionDate: time.Now(), Direction: "SIDEWAYS"})
	assert.Error(t, err)

	tx, err := NewBankTransaction(uuid.New(), NewBankTransactionInput{Amount: idr(1), TransactionDate: time.Now(), SenderName: "  Budi  "})
	require.NoError(t, err)
	assert.Equal(t, DirectionIncoming, tx.Direction)
	assert.Equal(t, "Budi", tx.SenderName)
}

func TestMatchPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultMatchPolicy().Validate())
	assert.Error(t, MatchPolicy{AutoAmountTolerance: decimal.Zero, ManualTolerancePct: decimal.Zero}.Validate())
	assert.Error(t, MatchPolicy{AutoAmountTolerance: decimal.NewFromInt(1), ManualTolerancePct: decimal.NewFromInt(2)}.Validate())
}
