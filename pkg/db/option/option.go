package option

import (
	"strings"
	"time"

	"github.com/smallbiznis/pricingread/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before it is executed.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func WithOrder(clauses ...string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		for _, c := range clauses {
			if strings.TrimSpace(c) != "" {
				db = db.Order(c)
			}
		}
		return db
	})
}

func WithWhere(query string, args ...any) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// ApplyDescCursor pages through rows ordered by (timeColumn DESC, id DESC).
// One extra row is fetched so callers can tell whether another page exists.
func ApplyDescCursor(p pagination.Pagination, timeColumn string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := p.PageSize
		if size <= 0 {
			size = 10
		}
		if size > 250 {
			size = 250
		}
		if token := strings.TrimSpace(p.PageToken); token != "" {
			if cursor, err := pagination.DecodeCursor(token); err == nil {
				if at, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
					db = db.Where("("+timeColumn+" < ?) OR ("+timeColumn+" = ? AND id < ?)", at, at, cursor.ID)
				}
			}
		}
		return db.Order(timeColumn + " DESC").Order("id DESC").Limit(size + 1)
	})
}
