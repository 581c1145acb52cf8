package handler

import "github.com/erp/fincalc/internal/interfaces/http/dto"

// normalizePage applies the list defaults and the page size cap
func normalizePage(page, pageSize int) (int, int) {
	defaults := dto.DefaultListRequest()
	if page <= 0 {
		page = defaults.Page
	}
	if pageSize <= 0 {
		pageSize = defaults.PageSize
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
