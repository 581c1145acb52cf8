package finance

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// StatementLine is one signed entry read from a bank statement file.
// Positive amounts are money in, negative amounts money out.
type StatementLine struct {
	Amount      decimal.Decimal
	Name        string
	Date        time.Time
	Reference   string
	Description string
}

// StatementParser reads statement lines from an exported bank file
type StatementParser interface {
	Parse(r io.Reader) ([]StatementLine, error)
}

// Input converts the signed line into a transaction input
func (l StatementLine) Input() NewBankTransactionInput {
	direction := DirectionIncoming
	if l.Amount.IsNegative() {
		direction = DirectionOutgoing
	}
	return NewBankTransactionInput{
		Amount:          l.Amount.Abs(),
		SenderName:      l.Name,
		TransactionDate: l.Date,
		Direction:       direction,
		Reference:       l.Reference,
		Description:     l.Description,
	}
}
