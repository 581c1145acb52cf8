package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalSource identifies what produced a journal entry
type JournalSource string

const (
	JournalSourceManual             JournalSource = "MANUAL"
	JournalSourceDepreciation       JournalSource = "DEPRECIATION"
	JournalSourceBankReconciliation JournalSource = "BANK_RECONCILIATION"
)

// IsValid checks if the source is known
func (s JournalSource) IsValid() bool {
	switch s {
	case JournalSourceManual, JournalSourceDepreciation, JournalSourceBankReconciliation:
		return true
	}
	return false
}

// JournalLine is one side of a double-entry posting.
// Exactly one of Debit and Credit is non-zero.
type JournalLine struct {
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Memo      string
}

// DebitLine builds a debit line
func DebitLine(accountID string, amount decimal.Decimal, memo string) JournalLine {
	return JournalLine{AccountID: accountID, Debit: amount, Credit: decimal.Zero, Memo: memo}
}

// CreditLine builds a credit line
func CreditLine(accountID string, amount decimal.Decimal, memo string) JournalLine {
	return JournalLine{AccountID: accountID, Debit: decimal.Zero, Credit: amount, Memo: memo}
}

// RejectionReason is the machine-readable cause of a rejected journal
type RejectionReason string

const (
	RejectMissingAccount    RejectionReason = "MISSING_ACCOUNT"
	RejectNegativeAmount    RejectionReason = "NEGATIVE_AMOUNT"
	RejectBothSides         RejectionReason = "LINE_HAS_BOTH_SIDES"
	RejectNoAmount          RejectionReason = "LINE_HAS_NO_AMOUNT"
	RejectInsufficientLines RejectionReason = "INSUFFICIENT_LINES"
	RejectUnbalanced        RejectionReason = "UNBALANCED"
)

// JournalRejection is returned when lines fail validation. LineIndex is -1
// when the rejection concerns the entry as a whole.
type JournalRejection struct {
	Reason          RejectionReason
	LineIndex       int
	ImbalanceAmount decimal.Decimal
	Message         string
}

// Error implements the error interface
func (r *JournalRejection) Error() string {
	return r.Message
}

// Is lets errors.Is treat every rejection as invalid input
func (r *JournalRejection) Is(target error) bool {
	return target == shared.ErrInvalidInput
}

func rejectLine(reason RejectionReason, idx int, format string, args ...any) *JournalRejection {
	return &JournalRejection{
		Reason:          reason,
		LineIndex:       idx,
		ImbalanceAmount: decimal.Zero,
		Message:         fmt.Sprintf(format, args...),
	}
}

// JournalTotals holds the side totals of a set of lines
type JournalTotals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Imbalance returns |debit - credit|
func (t JournalTotals) Imbalance() decimal.Decimal {
	return t.Debit.Sub(t.Credit).Abs()
}

// LedgerBalanceValidator enforces the double-entry rules
type LedgerBalanceValidator struct{}

// NewLedgerBalanceValidator creates a new LedgerBalanceValidator
func NewLedgerBalanceValidator() *LedgerBalanceValidator {
	return &LedgerBalanceValidator{}
}

// Validate checks all lines and returns their totals, or a *JournalRejection.
// Line-level rules are checked in order before the balance rule.
func (v *LedgerBalanceValidator) Validate(lines []JournalLine) (JournalTotals, error) {
	totals := JournalTotals{Debit: decimal.Zero, Credit: decimal.Zero}

	for i, line := range lines {
		if strings.TrimSpace(line.AccountID) == "" {
			return totals, rejectLine(RejectMissingAccount, i, "line %d has no account", i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return totals, rejectLine(RejectNegativeAmount, i, "line %d has a negative amount", i+1)
		}
		hasDebit, hasCredit := !line.Debit.IsZero(), !line.Credit.IsZero()
		if hasDebit && hasCredit {
			return totals, rejectLine(RejectBothSides, i, "line %d has both debit and credit", i+1)
		}
		if !hasDebit && !hasCredit {
			return totals, rejectLine(RejectNoAmount, i, "line %d has neither debit nor credit", i+1)
		}
		totals.Debit = totals.Debit.Add(line.Debit)
		totals.Credit = totals.Credit.Add(line.Credit)
	}

	if len(lines) < 2 {
		return totals, rejectLine(RejectInsufficientLines, -1, "a journal entry needs at least two lines, got %d", len(lines))
	}

	if !totals.Debit.Equal(totals.Credit) {
		return totals, &JournalRejection{
			Reason:          RejectUnbalanced,
			LineIndex:       -1,
			ImbalanceAmount: totals.Imbalance(),
			Message: fmt.Sprintf("debits %s do not equal credits %s (imbalance %s)",
				totals.Debit.StringFixed(2), totals.Credit.StringFixed(2), totals.Imbalance().StringFixed(2)),
		}
	}

	return totals, nil
}

// JournalEntry is a balanced, immutable posting to the ledger
type JournalEntry struct {
	shared.TenantAggregateRoot
	TransactionDate time.Time
	Description     string
	Source          JournalSource
	SourceID        *uuid.UUID
	Lines           []JournalLine
	TotalDebit      decimal.Decimal
	TotalCredit     decimal.Decimal
}

// NewJournalEntry validates lines and builds the entry. Nothing is created
// unless every rule passes.
func NewJournalEntry(
	tenantID uuid.UUID,
	transactionDate time.Time,
	description string,
	source JournalSource,
	sourceID *uuid.UUID,
	lines []JournalLine,
) (*JournalEntry, error) {
	if transactionDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Transaction date is required")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", fmt.Sprintf("Unknown journal source %q", source))
	}

	totals, err := NewLedgerBalanceValidator().Validate(lines)
	if err != nil {
		return nil, err
	}

	owned := make([]JournalLine, len(lines))
	copy(owned, lines)

	e := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TransactionDate:     transactionDate,
		Description:         description,
		Source:              source,
		SourceID:            sourceID,
		Lines:               owned,
		TotalDebit:          totals.Debit,
		TotalCredit:         totals.Credit,
	}
	e.AddDomainEvent(NewJournalEntryPostedEvent(e))
	return e, nil
}
