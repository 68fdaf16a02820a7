package observability

import (
	"github.com/smallbiznis/taxgate/internal/observability/logger"
	"github.com/smallbiznis/taxgate/internal/observability/metrics"
	"github.com/smallbiznis/taxgate/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// the tracer provider installs itself globally; nothing else depends on it
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
