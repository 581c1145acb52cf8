package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankTransactionStatus is the reconciliation state of a bank transaction.
// PENDING -> MATCHED -> APPROVED; MATCHED may be re-matched, APPROVED is final.
type BankTransactionStatus string

const (
	BankTransactionPending  BankTransactionStatus = "PENDING"
	BankTransactionMatched  BankTransactionStatus = "MATCHED"
	BankTransactionApproved BankTransactionStatus = "APPROVED"
)

// IsValid checks if the status is known
func (s BankTransactionStatus) IsValid() bool {
	switch s {
	case BankTransactionPending, BankTransactionMatched, BankTransactionApproved:
		return true
	}
	return false
}

// CanMatch reports whether a (re-)match is allowed from this status
func (s BankTransactionStatus) CanMatch() bool {
	return s == BankTransactionPending || s == BankTransactionMatched
}

// ClaimsInvoice reports whether a transaction in this status holds its invoice.
// An approved transaction has already settled its part, so a partially paid
// invoice is free for the next match.
func (s BankTransactionStatus) ClaimsInvoice() bool {
	return s == BankTransactionMatched
}

// TransactionDirection tells money coming in from money going out
type TransactionDirection string

const (
	DirectionIncoming TransactionDirection = "INCOMING"
	DirectionOutgoing TransactionDirection = "OUTGOING"
)

// IsValid checks if the direction is known
func (d TransactionDirection) IsValid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// InvoiceKind returns the invoice kind this direction settles
func (d TransactionDirection) InvoiceKind() InvoiceKind {
	if d == DirectionOutgoing {
		return InvoiceKindPayable
	}
	return InvoiceKindReceivable
}

// MatchMode records how a match was made
type MatchMode string

const (
	MatchModeAuto   MatchMode = "AUTO"
	MatchModeManual MatchMode = "MANUAL"
)

// BankTransaction is a line from a bank statement awaiting reconciliation
type BankTransaction struct {
	shared.TenantAggregateRoot
	Amount           decimal.Decimal
	SenderName       string
	TransactionDate  time.Time
	Direction        TransactionDirection
	Reference        string // bank-side identifier, unique per tenant when present
	Description      string
	Status           BankTransactionStatus
	MatchedInvoiceID *uuid.UUID
	MatchMode        MatchMode
	MatchedAt        *time.Time
	ApprovedAt       *time.Time
	JournalEntryID   *uuid.UUID
}

// NewBankTransactionInput carries one imported statement line
type NewBankTransactionInput struct {
	Amount          decimal.Decimal
	SenderName      string
	TransactionDate time.Time
	Direction       TransactionDirection
	Reference       string
	Description     string
}

// NewBankTransaction creates a PENDING transaction
func NewBankTransaction(tenantID uuid.UUID, in NewBankTransactionInput) (*BankTransaction, error) {
	if !in.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount must be positive")
	}
	if in.TransactionDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Transaction date is required")
	}
	direction := in.Direction
	if direction == "" {
		direction = DirectionIncoming
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", fmt.Sprintf("Unknown direction %q", in.Direction))
	}
	if len(in.Reference) > 100 {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference cannot exceed 100 characters")
	}

	return &BankTransaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Amount:              in.Amount,
		SenderName:          strings.TrimSpace(in.SenderName),
		TransactionDate:     in.TransactionDate,
		Direction:           direction,
		Reference:           strings.TrimSpace(in.Reference),
		Description:         in.Description,
		Status:              BankTransactionPending,
	}, nil
}

// Match assigns an invoice. Allowed from PENDING and MATCHED.
func (t *BankTransaction) Match(invoiceID uuid.UUID, mode MatchMode) error {
	if !t.Status.CanMatch() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot match transaction in %s status", t.Status))
	}
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	now := time.Now()
	id := invoiceID
	t.Status = BankTransactionMatched
	t.MatchedInvoiceID = &id
	t.MatchMode = mode
	t.MatchedAt = &now
	t.IncrementVersion()
	t.AddDomainEvent(NewBankTransactionMatchedEvent(t))
	return nil
}

// Approve confirms the match. Only valid from MATCHED; there is no way back.
func (t *BankTransaction) Approve() error {
	if t.Status != BankTransactionMatched || t.MatchedInvoiceID == nil {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Only MATCHED transactions can be approved, status is %s", t.Status))
	}
	now := time.Now()
	t.Status = BankTransactionApproved
	t.ApprovedAt = &now
	t.IncrementVersion()
	t.AddDomainEvent(NewBankTransactionApprovedEvent(t))
	return nil
}

func (t *BankTransaction) clone() *BankTransaction {
	c := *t
	c.Detach()
	return &c
}

// OpenInvoice is the matcher's read-only view of an unsettled invoice
type OpenInvoice struct {
	ID               uuid.UUID
	Kind             InvoiceKind
	Number           string
	CounterpartyName string
	RemainingAmount  decimal.Decimal
}

// MatchPolicy holds the matcher's tolerances
type MatchPolicy struct {
	// AutoAmountTolerance: auto-match needs |remaining - amount| strictly below this
	AutoAmountTolerance decimal.Decimal
	// ManualTolerancePct: manual match allows |remaining - amount| <= remaining * this
	ManualTolerancePct decimal.Decimal
}

// DefaultMatchPolicy returns the one-rupiah auto tolerance and 10% manual tolerance
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{
		AutoAmountTolerance: decimal.NewFromInt(1),
		ManualTolerancePct:  decimal.RequireFromString("0.10"),
	}
}

// Validate checks the tolerances
func (p MatchPolicy) Validate() error {
	if !p.AutoAmountTolerance.IsPositive() {
		return shared.NewDomainError("INVALID_MATCH_POLICY", "Auto-match tolerance must be positive")
	}
	if p.ManualTolerancePct.IsNegative() || p.ManualTolerancePct.GreaterThan(decimal.NewFromInt(1)) {
		return shared.NewDomainError("INVALID_MATCH_POLICY", "Manual tolerance must be between 0 and 1")
	}
	return nil
}

// MatchOutcome reports what auto-matching did with one transaction
type MatchOutcome struct {
	Transaction *BankTransaction
	Candidates  []uuid.UUID
	Matched     bool
}

// ReconciliationMatcher pairs bank transactions with open invoices
type ReconciliationMatcher struct {
	policy MatchPolicy
}

// NewReconciliationMatcher creates a matcher with the given policy
func NewReconciliationMatcher(policy MatchPolicy) *ReconciliationMatcher {
	return &ReconciliationMatcher{policy: policy}
}

// Policy returns the tolerances in use
func (m *ReconciliationMatcher) Policy() MatchPolicy {
	return m.policy
}

// firstToken returns the lower-cased first whitespace-delimited word
func firstToken(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// NamesOverlap checks whether the first word of either name occurs,
// case-insensitively, inside the other name
func NamesOverlap(senderName, counterpartyName string) bool {
	sender, counterparty := strings.ToLower(senderName), strings.ToLower(counterpartyName)
	senderToken, counterpartyToken := firstToken(senderName), firstToken(counterpartyName)
	if senderToken == "" || counterpartyToken == "" {
		return false
	}
	return strings.Contains(counterparty, senderToken) || strings.Contains(sender, counterpartyToken)
}

// IsCandidate reports whether the invoice is a plausible automatic match
func (m *ReconciliationMatcher) IsCandidate(tx *BankTransaction, inv OpenInvoice) bool {
	if inv.Kind != tx.Direction.InvoiceKind() || !inv.RemainingAmount.IsPositive() {
		return false
	}
	if !inv.RemainingAmount.Sub(tx.Amount).Abs().LessThan(m.policy.AutoAmountTolerance) {
		return false
	}
	return NamesOverlap(tx.SenderName, inv.CounterpartyName)
}

// AutoMatch matches each PENDING transaction that has exactly one candidate.
// Invoices already held by a MATCHED transaction in the input, or
// claimed earlier in the same call, are not candidates. Inputs are not
// modified; the outcomes carry updated copies in input order.
func (m *ReconciliationMatcher) AutoMatch(transactions []*BankTransaction, openInvoices []OpenInvoice) []MatchOutcome {
	claimed := make(map[uuid.UUID]bool)
	for _, tx := range transactions {
		if tx.Status.ClaimsInvoice() && tx.MatchedInvoiceID != nil {
			claimed[*tx.MatchedInvoiceID] = true
		}
	}

	outcomes := make([]MatchOutcome, 0, len(transactions))
	for _, tx := range transactions {
		out := tx.clone()
		outcome := MatchOutcome{Transaction: out, Candidates: []uuid.UUID{}}
		if tx.Status != BankTransactionPending {
			outcomes = append(outcomes, outcome)
			continue
		}

		for _, inv := range openInvoices {
			if claimed[inv.ID] {
				continue
			}
			if m.IsCandidate(tx, inv) {
				outcome.Candidates = append(outcome.Candidates, inv.ID)
			}
		}

		if len(outcome.Candidates) == 1 {
			if err := out.Match(outcome.Candidates[0], MatchModeAuto); err == nil {
				claimed[outcome.Candidates[0]] = true
				outcome.Matched = true
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// ManualMatch assigns a human-chosen invoice within the wider tolerance and
// returns the updated copy
func (m *ReconciliationMatcher) ManualMatch(tx *BankTransaction, inv OpenInvoice) (*BankTransaction, error) {
	if !tx.Status.CanMatch() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot match transaction in %s status", tx.Status))
	}
	if inv.Kind != tx.Direction.InvoiceKind() {
		return nil, shared.NewDomainError("INVOICE_KIND_MISMATCH",
			fmt.Sprintf("%s transactions settle %s invoices, got %s", tx.Direction, tx.Direction.InvoiceKind(), inv.Kind))
	}
	if !inv.RemainingAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Invoice %s has nothing left to settle", inv.Number))
	}

	diff := inv.RemainingAmount.Sub(tx.Amount).Abs()
	allowed := inv.RemainingAmount.Mul(m.policy.ManualTolerancePct)
	if diff.GreaterThan(allowed) {
		return nil, shared.NewDomainError("AMOUNT_OUT_OF_TOLERANCE",
			fmt.Sprintf("Difference %s exceeds allowed %s for invoice %s", diff.String(), allowed.String(), inv.Number))
	}

	out := tx.clone()
	if err := out.Match(inv.ID, MatchModeManual); err != nil {
		return nil, err
	}
	return out, nil
}

// Approve moves a MATCHED transaction to APPROVED and returns the updated copy
func (m *ReconciliationMatcher) Approve(tx *BankTransaction) (*BankTransaction, error) {
	out := tx.clone()
	if err := out.Approve(); err != nil {
		return nil, err
	}
	return out, nil
}
