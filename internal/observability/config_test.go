package observability

import (
	"testing"

	"github.com/smallbiznis/taxgate/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:       "production",
		AppVersion:        "1.2.0",
		LogLevel:          "info",
		OtelEnabled:       true,
		OTLPEndpoint:      " collector:4317 ",
		OTLPProtocol:      "grpc",
		OtelSamplingRatio: 4,
	})

	assert.Equal(t, "taxgate", cfg.ServiceName)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio, "out of range ratio falls back")
	assert.False(t, cfg.Debug())
	assert.False(t, cfg.Logger().IncludeStackOnError)
	assert.Equal(t, "1.2.0", cfg.Tracing().ServiceVersion)
	assert.True(t, cfg.Metrics().Enabled)
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{Environment: "sandbox"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
	assert.False(t, Config{Environment: "production", LogLevel: "warn"}.Debug())
}
