package finance

import (
	"fmt"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PostingAccounts maps the automatic postings to chart-of-accounts codes
type PostingAccounts struct {
	Cash                    string
	Receivable              string
	Payable                 string
	DepreciationExpense     string
	AccumulatedDepreciation string
	// Suspense holds the part of a settlement that exceeds the invoice
	Suspense string
}

// DefaultPostingAccounts returns the standard account codes
func DefaultPostingAccounts() PostingAccounts {
	return PostingAccounts{
		Cash:                    "1-1100",
		Receivable:              "1-1300",
		Payable:                 "2-1100",
		DepreciationExpense:     "6-1500",
		AccumulatedDepreciation: "1-2900",
		Suspense:                "1-1900",
	}
}

// Validate checks that every account is set
func (a PostingAccounts) Validate() error {
	for name, code := range map[string]string{
		"cash":                     a.Cash,
		"receivable":               a.Receivable,
		"payable":                  a.Payable,
		"depreciation_expense":     a.DepreciationExpense,
		"accumulated_depreciation": a.AccumulatedDepreciation,
		"suspense":                 a.Suspense,
	} {
		if code == "" {
			return shared.NewDomainError("INVALID_POSTING_ACCOUNTS", fmt.Sprintf("Account %s is not configured", name))
		}
	}
	return nil
}

// depreciationJournal builds the debit expense / credit accumulated entry for one history row
func depreciationJournal(accounts PostingAccounts, asset *finance.Asset, entry *finance.DepreciationHistoryEntry) (*finance.JournalEntry, error) {
	memo := fmt.Sprintf("Depreciation %s %s", asset.Code, entry.Period)
	assetID := asset.ID
	return finance.NewJournalEntry(
		asset.TenantID,
		entry.Period.LastDay(),
		memo,
		finance.JournalSourceDepreciation,
		&assetID,
		[]finance.JournalLine{
			finance.DebitLine(accounts.DepreciationExpense, entry.Expense, memo),
			finance.CreditLine(accounts.AccumulatedDepreciation, entry.Expense, memo),
		},
	)
}

// settlementJournal builds the cash entry for an approved bank transaction.
// Incoming: debit cash / credit receivable. Outgoing: debit payable / credit cash.
// Only applied is posted against the invoice account; the rest of the
// transaction amount goes to suspense.
func settlementJournal(accounts PostingAccounts, tx *finance.BankTransaction, invoice *finance.Invoice, applied decimal.Decimal) (*finance.JournalEntry, error) {
	memo := fmt.Sprintf("Settlement of %s from bank transaction %s", invoice.Number, tx.ID)
	excess := tx.Amount.Sub(applied)

	var lines []finance.JournalLine
	if tx.Direction == finance.DirectionOutgoing {
		lines = append(lines, finance.DebitLine(accounts.Payable, applied, memo))
		if excess.IsPositive() {
			lines = append(lines, finance.DebitLine(accounts.Suspense, excess, memo+" (unapplied)"))
		}
		lines = append(lines, finance.CreditLine(accounts.Cash, tx.Amount, memo))
	} else {
		lines = append(lines,
			finance.DebitLine(accounts.Cash, tx.Amount, memo),
			finance.CreditLine(accounts.Receivable, applied, memo))
		if excess.IsPositive() {
			lines = append(lines, finance.CreditLine(accounts.Suspense, excess, memo+" (unapplied)"))
		}
	}

	txID := tx.ID
	return finance.NewJournalEntry(
		tx.TenantID,
		tx.TransactionDate,
		memo,
		finance.JournalSourceBankReconciliation,
		&txID,
		lines,
	)
}
