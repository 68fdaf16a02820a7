package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	submissionAttempts metric.Int64Counter
	submissions        metric.Int64Counter
	gatewayLatency     metric.Int64Histogram
	recoveredClaims    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "taxgate"
	}
	meter := provider.Meter(name)

	submissionAttempts, err := meter.Int64Counter("taxgate_submission_attempts_total",
		metric.WithDescription("Gateway calls by classified outcome."))
	if err != nil {
		return nil, err
	}
	submissions, err := meter.Int64Counter("taxgate_submissions_total",
		metric.WithDescription("Completed submissions by final invoice status."))
	if err != nil {
		return nil, err
	}
	gatewayLatency, err := meter.Int64Histogram("taxgate_gateway_latency_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("Gateway round-trip latency."))
	if err != nil {
		return nil, err
	}

	recoveredClaims, err := meter.Int64Counter("taxgate_recovered_claims_total",
		metric.WithDescription("Stale submission claims settled by the recovery sweep, by resulting status."))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		submissionAttempts: submissionAttempts,
		submissions:        submissions,
		gatewayLatency:     gatewayLatency,
		recoveredClaims:    recoveredClaims,
	}, nil
}

// RecordAttempt counts one gateway call and its latency.
func (m *Metrics) RecordAttempt(ctx context.Context, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.submissionAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.gatewayLatency.Record(ctx, latency.Milliseconds(), metric.WithAttributes(attrs...))
}

// RecordSubmission counts a submission that reached a terminal status.
func (m *Metrics) RecordSubmission(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.submissions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRecovery counts a stale claim settled by the recovery sweep.
func (m *Metrics) RecordRecovery(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.recoveredClaims.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"tenant_id":   {},
	"endpoint":    {},
	"method":      {},
	"status_code": {},
	"outcome":     {},
	"status":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
