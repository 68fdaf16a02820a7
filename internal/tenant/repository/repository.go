package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/smallbiznis/taxgate/internal/tenant/domain"
	"github.com/smallbiznis/taxgate/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[tenantdomain.Tenant]
}

func Provide(db *gorm.DB) tenantdomain.Repository {
	return &repo{store: repository.ProvideStore[tenantdomain.Tenant](db)}
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*tenantdomain.Tenant, error) {
	if id == 0 {
		return nil, tenantdomain.ErrNotFound
	}
	tenant, err := r.store.FindOne(ctx, &tenantdomain.Tenant{ID: id})
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}
	return tenant, nil
}

// FindActiveBySellerNTN skips deactivated sellers so they cannot be picked as the default tenant.
func (r *repo) FindActiveBySellerNTN(ctx context.Context, ntn string) (*tenantdomain.Tenant, error) {
	ntn = strings.TrimSpace(ntn)
	if ntn == "" {
		return nil, tenantdomain.ErrNotFound
	}
	tenant, err := r.store.FindOne(ctx, &tenantdomain.Tenant{SellerNTN: ntn}, repository.WithActive())
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}
	return tenant, nil
}

func (r *repo) Create(ctx context.Context, tenant *tenantdomain.Tenant) error {
	return r.store.Create(ctx, tenant)
}
