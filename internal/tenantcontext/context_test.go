package tenantcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestTenantIDRoundTrip(t *testing.T) {
	ctx := WithTenantID(context.Background(), snowflake.ID(42))
	id, ok := TenantIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)
}

func TestTenantIDMissingOrZero(t *testing.T) {
	_, ok := TenantIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = TenantIDFromContext(WithTenantID(context.Background(), 0))
	assert.False(t, ok)
}
