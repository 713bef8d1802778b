package repository

import (
	"context"

	"github.com/smallbiznis/pricingread/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is an insert-only store. Fact tables never expose update or delete.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	Max(ctx context.Context, column string, query *T, opts ...option.QueryOption) (int64, error)
}
