package finance

import (
	"errors"
	"testing"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostingAccounts_Validate(t *testing.T) {
	require.NoError(t, DefaultPostingAccounts().Validate())

	accounts := DefaultPostingAccounts()
	accounts.Suspense = ""
	err := accounts.Validate()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "INVALID_POSTING_ACCOUNTS", de.Code)
	assert.Contains(t, de.Message, "suspense")
}

func TestSettlementJournal(t *testing.T) {
	tenantID := uuid.New()
	accounts := DefaultPostingAccounts()
	bill := newTestReceivable(t, tenantID, "BILL-1", "PT Sumber", 2_000_000)
	bill.Kind = finance.InvoiceKindPayable

	outgoing := func(t *testing.T, amount int64) *finance.BankTransaction {
		t.Helper()
		tx, err := finance.NewBankTransaction(tenantID, finance.NewBankTransactionInput{
			Amount:          decimal.NewFromInt(amount),
			SenderName:      "PT Sumber",
			TransactionDate: testTxDate,
			Direction:       finance.DirectionOutgoing,
		})
		require.NoError(t, err)
		return tx
	}

	t.Run("exact payment posts two lines", func(t *testing.T) {
		tx := outgoing(t, 2_000_000)
		journal, err := settlementJournal(accounts, tx, bill, bill.AppliedAmount(tx.Amount))
		require.NoError(t, err)
		require.Len(t, journal.Lines, 2)
		assert.Equal(t, "2-1100", journal.Lines[0].AccountID)
		assert.Equal(t, "1-1100", journal.Lines[1].AccountID)
	})

	t.Run("outgoing overpayment debits suspense", func(t *testing.T) {
		tx := outgoing(t, 2_150_000)
		journal, err := settlementJournal(accounts, tx, bill, bill.AppliedAmount(tx.Amount))
		require.NoError(t, err)
		require.Len(t, journal.Lines, 3)

		assert.Equal(t, "2-1100", journal.Lines[0].AccountID)
		assert.True(t, journal.Lines[0].Debit.Equal(decimal.NewFromInt(2_000_000)))
		assert.Equal(t, "1-1900", journal.Lines[1].AccountID)
		assert.True(t, journal.Lines[1].Debit.Equal(decimal.NewFromInt(150_000)))
		assert.Equal(t, "1-1100", journal.Lines[2].AccountID)
		assert.True(t, journal.Lines[2].Credit.Equal(decimal.NewFromInt(2_150_000)))
		assert.True(t, journal.TotalDebit.Equal(journal.TotalCredit))
	})
}
