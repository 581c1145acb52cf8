package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(367461), IDR)
		require.NoError(t, err)
		assert.Equal(t, IDR, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(367461)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("5000000000000", IDR)
		require.NoError(t, err)
		assert.Equal(t, "5000000000000", m.Amount().String())
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("lima juta", IDR)
		assert.Error(t, err)
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyIDRFromInt(5_000_000)
	b := NewMoneyIDRFromInt(4_000_000)

	t.Run("add and subtract", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Equals(NewMoneyIDRFromInt(9_000_000)))

		diff, err := b.Subtract(a)
		require.NoError(t, err)
		assert.True(t, diff.IsNegative())
		assert.True(t, diff.Abs().Equals(NewMoneyIDRFromInt(1_000_000)))
	})

	t.Run("currency mismatch", func(t *testing.T) {
		usd, err := NewMoney(decimal.NewFromInt(1), USD)
		require.NoError(t, err)

		_, err = a.Add(usd)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		_, err = a.Subtract(usd)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		_, err = a.GreaterThan(usd)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("rate and rounding", func(t *testing.T) {
		ppn := NewMoneyIDRFromInt(1_234_567).Multiply(decimal.RequireFromString("0.11"))
		assert.Equal(t, "135802.37", ppn.Amount().String())
		assert.Equal(t, "135802", ppn.RoundWhole().Amount().String())

		half := NewMoneyIDR(decimal.RequireFromString("10.5"))
		assert.Equal(t, "11", half.RoundWhole().Amount().String())
		assert.Equal(t, "10", half.FloorWhole().Amount().String())
	})

	t.Run("comparison", func(t *testing.T) {
		gt, err := a.GreaterThan(b)
		require.NoError(t, err)
		assert.True(t, gt)
		assert.True(t, ZeroIDR().IsZero())
		assert.False(t, ZeroIDR().IsPositive())
	})
}

func TestMoney_JSON(t *testing.T) {
	t.Run("round trip keeps precision", func(t *testing.T) {
		m := NewMoneyIDR(decimal.RequireFromString("4999999999999.99"))
		data, err := json.Marshal(m)
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"4999999999999.99","currency":"IDR"}`, string(data))

		var back Money
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, back.Equals(m))
	})

	t.Run("missing currency defaults to IDR", func(t *testing.T) {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"10"}`), &m))
		assert.Equal(t, IDR, m.Currency())
	})
}

func TestMoney_Scan(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "0"},
		{"string", "120000000", "120000000"},
		{"bytes", []byte("2000000.50"), "2000000.5"},
		{"int64", int64(42), "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			require.NoError(t, m.Scan(tt.value))
			assert.Equal(t, tt.want, m.Amount().String())
			assert.Equal(t, DefaultCurrency, m.Currency())
		})
	}

	t.Run("unsupported type", func(t *testing.T) {
		var m Money
		assert.Error(t, m.Scan(true))
	})
}
