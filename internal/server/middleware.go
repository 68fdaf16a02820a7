package server

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/taxgate/internal/observability/context"
	"github.com/smallbiznis/taxgate/internal/tenantcontext"
)

const (
	HeaderTenant       = "X-Tenant-ID"
	contextTenantIDKey = "tenant_id"
)

// TenantContext resolves the calling tenant from the header set by the upstream proxy.
// Requests without the header fall back to the seeded default tenant, if any.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			raw = s.defaultTenant(c.Request.Context())
		}
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		tenantID, err := snowflake.ParseString(raw)
		if err != nil || tenantID == 0 {
			AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "invalid tenant id"))
			return
		}

		ctx := tenantcontext.WithTenantID(c.Request.Context(), tenantID)
		ctx = obscontext.WithTenantID(ctx, tenantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextTenantIDKey, tenantID.String())
		c.Next()
	}
}

func tenantIDFrom(ctx context.Context) (snowflake.ID, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return 0, ErrUnauthorized
	}
	return tenantID, nil
}
