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

// Metrics exposes ingestion instruments.
type Metrics struct {
	eventsIngested metric.Int64Counter
	deadLetters    metric.Int64Counter
	rowsAppended   metric.Int64Counter
	ingestDuration metric.Float64Histogram
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
		name = "pricingread"
	}
	meter := provider.Meter(name)

	eventsIngested, err := meter.Int64Counter("pricingread_events_ingested_total",
		metric.WithDescription("Events accepted and appended to a fact table."))
	if err != nil {
		return nil, err
	}
	deadLetters, err := meter.Int64Counter("pricingread_dead_letters_total",
		metric.WithDescription("Events rejected and recorded in the dead-letter store."))
	if err != nil {
		return nil, err
	}
	rowsAppended, err := meter.Int64Counter("pricingread_rows_appended_total",
		metric.WithDescription("Fact rows appended per table."))
	if err != nil {
		return nil, err
	}
	ingestDuration, err := meter.Float64Histogram("pricingread_ingest_duration_seconds",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsIngested: eventsIngested,
		deadLetters:    deadLetters,
		rowsAppended:   rowsAppended,
		ingestDuration: ingestDuration,
	}, nil
}

// NewNoop returns instruments backed by a no-op provider, for tests and tools.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordIngested(ctx context.Context, family string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("family", strings.TrimSpace(family)))
	m.eventsIngested.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDeadLetter(ctx context.Context, eventType, errorClass, errorKind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("error_class", strings.TrimSpace(errorClass)),
		attribute.String("error_kind", strings.TrimSpace(errorKind)),
	)
	m.deadLetters.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRowsAppended(ctx context.Context, table string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("table", strings.TrimSpace(table)))
	m.rowsAppended.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
}

func (m *Metrics) ObserveIngest(ctx context.Context, family, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("family", strings.TrimSpace(family)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.ingestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
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
	"family":      {},
	"event_type":  {},
	"error_class": {},
	"error_kind":  {},
	"table":       {},
	"outcome":     {},
	"status_code": {},
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
