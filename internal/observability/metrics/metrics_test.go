package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsHighCardinalityLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("family", "pricing"),
		attribute.String("order_id", "ORD-1"),
		attribute.String("error_kind", "granularity_mismatch"),
	)
	assert.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("order_id"), attr.Key)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordIngested(ctx, "pricing")
		m.RecordDeadLetter(ctx, "PricingUpdated", "schema_violation", "schema_violation")
		m.RecordRowsAppended(ctx, "pricing_components", 3)
		m.ObserveIngest(ctx, "pricing", "ok", time.Millisecond)
	})
}

func TestNoopMetricsRecord(t *testing.T) {
	m := NewNoop()
	assert.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.RecordIngested(context.Background(), "payment")
	})
}
