package seed

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/taxgate/internal/config"
	tenantdomain "github.com/smallbiznis/taxgate/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tenantdomain.Tenant{}))
	return db
}

func TestEnsureDefaultTenantIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	seed := config.TenantSeed{
		ID:           42,
		SellerNTN:    "7654321",
		BusinessName: "Seller Ltd",
		Province:     "Punjab",
		Address:      "Lahore",
		GatewayToken: "token",
	}

	first, err := EnsureDefaultTenant(db, seed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), first.ID.Int64())
	require.NotNil(t, first.GatewayToken)
	assert.True(t, first.IsActive)

	seed.BusinessName = "Renamed"
	second, err := EnsureDefaultTenant(db, seed)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Seller Ltd", second.BusinessName)

	var count int64
	require.NoError(t, db.Model(&tenantdomain.Tenant{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureDefaultTenantRequiresSeed(t *testing.T) {
	db := newTestDB(t)

	_, err := EnsureDefaultTenant(db, config.TenantSeed{})
	assert.Error(t, err)
	_, err = EnsureDefaultTenant(nil, config.TenantSeed{SellerNTN: "1", BusinessName: "x"})
	assert.Error(t, err)
}
