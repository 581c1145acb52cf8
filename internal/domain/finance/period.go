package finance

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
)

// Period is an accounting month in "YYYY-MM" form
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a "YYYY-MM" string
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil || len(s) != 7 {
		return Period{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Period %q must be in YYYY-MM format", s))
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// MustParsePeriod is ParsePeriod for literals known to be valid
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// String returns the "YYYY-MM" form
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is unset
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) index() int {
	return p.Year*12 + int(p.Month) - 1
}

// Before reports whether p is strictly earlier than other
func (p Period) Before(other Period) bool {
	return p.index() < other.index()
}

// After reports whether p is strictly later than other
func (p Period) After(other Period) bool {
	return p.index() > other.index()
}

// Next returns the following month
func (p Period) Next() Period {
	return p.AddMonths(1)
}

// Previous returns the preceding month
func (p Period) Previous() Period {
	return p.AddMonths(-1)
}

// AddMonths shifts the period by n months
func (p Period) AddMonths(n int) Period {
	idx := p.index() + n
	return Period{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

// LastDay returns the last calendar day of the period, used as posting date
func (p Period) LastDay() time.Time {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC)
}

// Value implements driver.Valuer
func (p Period) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner
func (p *Period) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Period", value)
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Period) UnmarshalText(data []byte) error {
	parsed, err := ParsePeriod(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
