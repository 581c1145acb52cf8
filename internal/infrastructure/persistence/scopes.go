package persistence

import (
	"fmt"
	"strings"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// tenantScope restricts a query to one tenant
func tenantScope(tenantID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// pageScope applies whitelisted ordering and pagination from a filter
func pageScope(filter shared.Filter, allowed map[string]bool, defaultField string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		sortField := ValidateSortField(filter.OrderBy, allowed, defaultField)
		sortOrder := ValidateSortOrder(filter.OrderDir)
		db = db.Order(fmt.Sprintf("%s %s", sortField, sortOrder))

		if filter.PageSize > 0 {
			db = db.Limit(filter.PageSize)
			if offset := filter.Offset(); offset > 0 {
				db = db.Offset(offset)
			}
		}
		return db
	}
}

// searchScope matches a case-insensitive pattern against the given columns
func searchScope(search string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		search = strings.TrimSpace(search)
		if search == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + strings.ToLower(search) + "%"
		clauses := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, c := range columns {
			clauses[i] = fmt.Sprintf("LOWER(%s) LIKE ?", c)
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// concurrencyConflict is returned when a versioned update matched no row
func concurrencyConflict(entity string) error {
	return shared.NewDomainError("CONCURRENCY_CONFLICT", entity+" has been modified by another process")
}
