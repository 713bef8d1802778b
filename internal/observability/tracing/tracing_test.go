package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smallbiznis/pricingread/pkg/log/ctxlogger"
	"github.com/smallbiznis/pricingread/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpansCarryCorrelationAndOrder(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&correlationSpanProcessor{}),
		sdktrace.WithSpanProcessor(recorder),
	)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx := correlation.ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = ctxlogger.ContextWithOrderID(ctx, "ORD-1")
	_, span := tp.Tracer("test").Start(ctx, "append")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := map[attribute.Key]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "corr-1", attrs["correlation_id"])
	assert.Equal(t, "ORD-1", attrs["order_id"])
}

func TestSafeAttributesDropsPayloadData(t *testing.T) {
	out := SafeAttributes(
		attribute.String("order_id", "ORD-1"),
		attribute.Int64("amount", 100000),
		attribute.String("raw_event", "{}"),
	)
	require.Len(t, out, 1)
	assert.Equal(t, attribute.Key("order_id"), out[0].Key)
}

func TestSafeErrorTruncates(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	long := errors.New(strings.Repeat("x", 300))
	assert.Len(t, SafeError(long).Error(), 256)
}
