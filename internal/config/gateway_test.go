package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubmitURLPrefersProductionOnlyInProduction(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.ProductionURL = "https://gw.example/post"

	assert.Equal(t, DefaultSandboxURL, cfg.SubmitURL(false))
	assert.Equal(t, "https://gw.example/post", cfg.SubmitURL(true))

	cfg.ProductionURL = ""
	assert.Equal(t, DefaultSandboxURL, cfg.SubmitURL(true))
}

func TestLeaseDerivedFromRetryBudget(t *testing.T) {
	cfg := DefaultGatewayConfig()
	assert.Equal(t, 3*(30*time.Second+2*time.Second)+time.Minute, cfg.Lease())

	cfg.ClaimLease = 5 * time.Minute
	assert.Equal(t, 5*time.Minute, cfg.Lease())
}

func TestValidationTokenFallsBack(t *testing.T) {
	cfg := GatewayConfig{Token: "submit"}
	assert.Equal(t, "submit", cfg.ValidationToken())
	cfg.ValidateToken = "validate"
	assert.Equal(t, "validate", cfg.ValidationToken())
}

func TestValidateGatewayConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*GatewayConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*GatewayConfig) {}},
		{name: "no endpoints", mutate: func(c *GatewayConfig) { c.SandboxURL = "" }, wantErr: true},
		{name: "zero attempts", mutate: func(c *GatewayConfig) { c.MaxAttempts = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *GatewayConfig) { c.Timeout = 0 }, wantErr: true},
		{name: "negative delay", mutate: func(c *GatewayConfig) { c.RetryDelay = -time.Second }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultGatewayConfig()
			tc.mutate(&cfg)
			err := validateGatewayConfig(cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewGatewayConfigHolderUsesDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewGatewayConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, DefaultSandboxURL, cfg.SandboxURL)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
}
