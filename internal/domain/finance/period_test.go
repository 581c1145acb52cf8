package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input   string
		want    Period
		wantErr bool
	}{
		{"2024-01", Period{2024, time.January}, false},
		{"2024-12", Period{2024, time.December}, false},
		{"2024-13", Period{}, true},
		{"2024-1", Period{}, true},
		{"24-01", Period{}, true},
		{"", Period{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestPeriod_Arithmetic(t *testing.T) {
	p := MustParsePeriod("2024-12")

	assert.Equal(t, "2025-01", p.Next().String())
	assert.Equal(t, "2024-11", p.Previous().String())
	assert.Equal(t, "2023-12", p.AddMonths(-12).String())
	assert.Equal(t, "2029-11", p.AddMonths(59).String())
	assert.True(t, p.Before(p.Next()))
	assert.True(t, p.After(p.Previous()))
	assert.False(t, p.Before(p))
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), p.LastDay())
	assert.Equal(t, 29, MustParsePeriod("2024-02").LastDay().Day())
}

func TestPeriod_TextRoundTrip(t *testing.T) {
	var p Period
	require.NoError(t, p.UnmarshalText([]byte("2025-03")))
	text, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2025-03", string(text))

	require.NoError(t, p.Scan([]byte("2025-04")))
	assert.Equal(t, time.April, p.Month)
	assert.Error(t, p.Scan(42))
}
