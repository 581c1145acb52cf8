// Package statement reads exported bank statement files into statement lines.
package statement

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// OFXParser parses OFX 1.x (SGML) and 2.x (XML) statement downloads.
// Bank and credit card statements are both read; zero-amount lines are dropped.
type OFXParser struct{}

// NewOFXParser creates an OFXParser
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

// Parse reads every STMTTRN of every statement in r
func (p *OFXParser) Parse(r io.Reader) ([]finance.StatementLine, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("parse ofx: %w", err)
	}

	var lines []finance.StatementLine
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		parsed, err := toLines(stmt.BankTranList.Transactions)
		if err != nil {
			return nil, err
		}
		lines = append(lines, parsed...)
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		parsed, err := toLines(stmt.BankTranList.Transactions)
		if err != nil {
			return nil, err
		}
		lines = append(lines, parsed...)
	}
	return lines, nil
}

func toLines(transactions []ofxgo.Transaction) ([]finance.StatementLine, error) {
	lines := make([]finance.StatementLine, 0, len(transactions))
	for i := range transactions {
		t := &transactions[i]
		amount, err := decimal.NewFromString(t.TrnAmt.Rat.FloatString(4))
		if err != nil {
			return nil, fmt.Errorf("transaction %s: amount: %w", t.FiTID, err)
		}
		if amount.IsZero() {
			continue
		}
		lines = append(lines, finance.StatementLine{
			Amount:      amount,
			Name:        counterparty(t),
			Date:        postedDate(t.DtPosted.Time),
			Reference:   strings.TrimSpace(string(t.FiTID)),
			Description: strings.TrimSpace(string(t.Memo)),
		})
	}
	return lines, nil
}

// counterparty prefers NAME, then the PAYEE aggregate, then the memo
func counterparty(t *ofxgo.Transaction) string {
	if name := strings.TrimSpace(string(t.Name)); name != "" {
		return name
	}
	if t.Payee != nil {
		if name := strings.TrimSpace(string(t.Payee.Name)); name != "" {
			return name
		}
	}
	return strings.TrimSpace(string(t.Memo))
}

// postedDate keeps the calendar day the bank reported, in UTC
func postedDate(posted time.Time) time.Time {
	y, m, d := posted.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ finance.StatementParser = (*OFXParser)(nil)
