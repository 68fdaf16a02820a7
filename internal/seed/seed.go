package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxgate/internal/config"
	tenantdomain "github.com/smallbiznis/taxgate/internal/tenant/domain"
	"gorm.io/gorm"
)

// EnsureDefaultTenant creates the configured tenant on first boot and returns the stored row.
// An existing tenant with the same seller NTN is left untouched.
func EnsureDefaultTenant(db *gorm.DB, seed config.TenantSeed) (tenantdomain.Tenant, error) {
	if db == nil {
		return tenantdomain.Tenant{}, errors.New("seed database handle is required")
	}
	if !seed.Enabled() {
		return tenantdomain.Tenant{}, errors.New("default tenant seed is incomplete")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}

	ctx := context.Background()
	var tenant tenantdomain.Tenant
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tenant, err = ensureTenantTx(ctx, tx, node, seed)
		return err
	})
	return tenant, err
}

func ensureTenantTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, seed config.TenantSeed) (tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	ntn := strings.TrimSpace(seed.SellerNTN)
	err := tx.WithContext(ctx).Where("seller_ntn = ?", ntn).First(&tenant).Error
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tenant, err
	}

	id := snowflake.ID(seed.ID)
	if id == 0 {
		id = node.Generate()
	}
	now := time.Now().UTC()
	tenant = tenantdomain.Tenant{
		ID:           id,
		SellerNTN:    ntn,
		BusinessName: strings.TrimSpace(seed.BusinessName),
		Province:     strings.TrimSpace(seed.Province),
		Address:      strings.TrimSpace(seed.Address),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if token := strings.TrimSpace(seed.GatewayToken); token != "" {
		tenant.GatewayToken = &token
	}
	if err := tx.WithContext(ctx).Create(&tenant).Error; err != nil {
		return tenant, err
	}
	return tenant, nil
}
