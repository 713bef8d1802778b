package server

import (
	"strconv"
	"strings"

	"github.com/smallbiznis/pricingread/pkg/db/pagination"
)

func parseOptionalInt64(value string) (*int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type pageQuery struct {
	PageToken string `form:"page_token"`
	PageSize  string `form:"page_size"`
}

// toPagination validates page_size (1..250, default 10) and passes the token through.
func (q pageQuery) toPagination() (pagination.Pagination, error) {
	size, err := parseOptionalInt64(q.PageSize)
	if err != nil || (size != nil && (*size < 1 || *size > 250)) {
		return pagination.Pagination{}, newValidationError("page_size", "invalid_page_size", "page_size must be between 1 and 250")
	}
	p := pagination.Pagination{PageToken: strings.TrimSpace(q.PageToken), PageSize: 10}
	if size != nil {
		p.PageSize = int(*size)
	}
	return p, nil
}
