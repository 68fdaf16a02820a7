package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/taxgate/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationIDs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithTenantID(ctx, "42")
	WithContext(ctx, base).Info("submitted")
	WithContext(context.Background(), base).Info("bare")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "42", entries[0].ContextMap()["tenant_id"])
	assert.Empty(t, entries[1].ContextMap())
}

func TestBuildConfigRejectsUnknownLevel(t *testing.T) {
	_, err := buildConfig(Config{Level: "loud"})
	assert.Error(t, err)

	cfg, err := buildConfig(Config{Format: "Console"})
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Nil(t, cfg.Sampling)
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", 200, ""))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/api/v1/invoices", 201, ""))
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/api/v1/invoices", 400, "validation_error"))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/api/v1/invoices/:id", 404, "not_found"))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/api/v1/invoices/:id/validate", 504, "gateway_timeout"))
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/api/v1/invoices/:id/submit", 500, "internal"))
}
