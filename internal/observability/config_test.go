package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/pricingread/internal/config"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("DB_LOG_LEVEL", "")
	t.Setenv("DB_SLOW_QUERY_MS", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEPLOYMENT_ENV", "")

	cfg := LoadConfig(config.Config{Environment: "production", AppVersion: "1.2.3"})

	assert.Equal(t, "pricingread", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
	assert.Equal(t, gormlogger.Warn, cfg.QueryLogLevel)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("DB_SLOW_QUERY_MS", "50")
	t.Setenv("DEPLOYMENT_ENV", "")

	cfg := LoadConfig(config.Config{AppName: "pricing-read", Environment: "production"})

	assert.Equal(t, "pricing-read", cfg.ServiceName)
	assert.True(t, cfg.OtelEnabled)
	assert.True(t, cfg.Debug())
	assert.Equal(t, gormlogger.Silent, cfg.QueryLogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.SlowQueryThreshold)
}

func TestQueryLoggerWatchesEveryOwnedTable(t *testing.T) {
	l := NewQueryLogger(Config{QueryLogLevel: gormlogger.Warn})
	for _, table := range []string{"pricing_components", "payment_timeline", "supplier_timeline", "refund_timeline", "dead_letters"} {
		assert.True(t, l.AppendOnly(table), table)
	}
}
