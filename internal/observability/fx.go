package observability

import (
	deadletterdomain "github.com/smallbiznis/pricingread/internal/deadletter/domain"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	"github.com/smallbiznis/pricingread/internal/observability/logger"
	"github.com/smallbiznis/pricingread/internal/observability/metrics"
	"github.com/smallbiznis/pricingread/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"gorm.io/gorm/schema"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(cfg Config) logger.Config {
			return logger.Config{
				ServiceName:         cfg.ServiceName,
				Environment:         cfg.Environment,
				Version:             cfg.Version,
				Level:               cfg.LogLevel,
				Format:              cfg.LogFormat,
				Debug:               cfg.Debug(),
				IncludeCaller:       true,
				IncludeStackOnError: cfg.Debug(),
			}
		},
		logger.New,
		NewQueryLogger,
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.OtelEnabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.OtelExporterEndpoint,
				ExporterProtocol: cfg.OtelExporterProtocol,
				SamplingRatio:    cfg.OtelSamplingRatio,
			}
		},
		tracing.NewProvider,
		func(cfg Config) metrics.Config {
			return metrics.Config{
				Enabled:          cfg.OtelEnabled,
				ExporterEndpoint: cfg.OtelExporterEndpoint,
				ExporterProtocol: cfg.OtelExporterProtocol,
				ServiceName:      cfg.ServiceName,
				Environment:      cfg.Environment,
			}
		},
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// the tracer provider has no consumers; force construction so spans export
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

// NewQueryLogger builds the gorm logger for the store connection. Every owned table
// is append-only.
func NewQueryLogger(cfg Config) *logger.GormLogger {
	models := append(factdomain.Models(), &deadletterdomain.DeadLetter{})
	tables := make([]string, 0, len(models))
	for _, m := range models {
		if t, ok := m.(schema.Tabler); ok {
			tables = append(tables, t.TableName())
		}
	}
	return logger.NewGormLogger(logger.GormLoggerConfig{
		Level:            cfg.QueryLogLevel,
		SlowThreshold:    cfg.SlowQueryThreshold,
		AppendOnlyTables: tables,
	})
}
