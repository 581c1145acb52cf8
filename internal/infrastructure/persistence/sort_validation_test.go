package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"ASC", "ASC"},
		{"asc", "ASC"},
		{"  asc  ", "ASC"},
		{"desc", "DESC"},
		{"sideways", "DESC"},
		{"ASC; DROP TABLE fixed_assets;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty falls back", "", "created_at"},
		{"whitelisted field", "current_book_value", "current_book_value"},
		{"surrounding whitespace is trimmed", "  code  ", "code"},
		{"unknown column", "salary", "created_at"},
		{"case sensitive", "CODE", "created_at"},
		{"statement injection", "code; DROP TABLE fixed_assets;--", "created_at"},
		{"subquery injection", "code, (SELECT tenant_id FROM invoices)", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, AssetSortFields, "created_at"))
		})
	}
}

func TestSortFieldsWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"AssetSortFields":           AssetSortFields,
		"InvoiceSortFields":         InvoiceSortFields,
		"BankTransactionSortFields": BankTransactionSortFields,
	}

	for name, whitelist := range whitelists {
		t.Run(name, func(t *testing.T) {
			for _, field := range []string{"id", "created_at", "updated_at", "status"} {
				assert.True(t, whitelist[field], "%s should contain %q", name, field)
			}
		})
	}
}
