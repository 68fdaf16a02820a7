package repository

import (
	"context"

	"gorm.io/gorm"
)

// QueryOption customizes a query built by the generic store.
type QueryOption func(db *gorm.DB) *gorm.DB

// Repository is a thin generic gorm store for aggregates looked up by example.
// FindOne returns nil, nil when nothing matches.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
}

// WithActive limits a lookup to rows whose is_active flag is set.
func WithActive() QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_active = ?", true)
	}
}
