package ctxlogger

import (
	"context"
	"sync/atomic"

	"github.com/smallbiznis/pricingread/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type orderKey struct{}

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added by FromContext.
func SetServiceName(name string) {
	serviceName.Store(&name)
}

// ContextWithOrderID annotates the context with the order whose facts are being written or read.
func ContextWithOrderID(ctx context.Context, orderID string) context.Context {
	if orderID == "" {
		return ctx
	}
	return context.WithValue(ctx, orderKey{}, orderID)
}

func OrderIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(orderKey{}).(string)
	return v
}

// FromContext returns the global logger enriched with correlation, trace and order fields.
func FromContext(ctx context.Context) *zap.Logger {
	base := zap.L()
	if ctx == nil {
		return base
	}

	name := "unknown"
	if p := serviceName.Load(); p != nil {
		name = *p
	}

	fields := make([]zap.Field, 0, 5)
	fields = append(fields, zap.String("service", name), ExtractCorrelation(ctx))
	fields = append(fields, ExtractTrace(ctx)...)
	if orderID := OrderIDFromContext(ctx); orderID != "" {
		fields = append(fields, zap.String("order_id", orderID))
	}
	return base.With(fields...)
}

// ExtractCorrelation pulls the correlation ID from the context, minting one when absent.
func ExtractCorrelation(ctx context.Context) zap.Field {
	cid := correlation.ExtractCorrelationID(ctx)
	if cid == "" {
		_, cid = correlation.EnsureCorrelationID(ctx)
	}
	return zap.String("correlation_id", cid)
}

// ExtractTrace pulls tracing identifiers from the context span.
func ExtractTrace(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return []zap.Field{zap.String("trace_id", ""), zap.String("span_id", "")}
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
