package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "cid-1")
	_, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "cid-1", cid)
}

func TestEnsureCorrelationIDMintsULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	assert.Len(t, cid, 26)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))
}

func TestForEventPrefersEventID(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "request")
	assert.Equal(t, "evt-9", ExtractCorrelationID(ForEvent(ctx, "evt-9")))
	assert.Equal(t, "request", ExtractCorrelationID(ForEvent(ctx, "")))
}

func TestContextWithRemoteSpanIgnoresGarbage(t *testing.T) {
	ctx := ContextWithRemoteSpan(context.Background(), "zz", "yy")
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid())

	ctx = ContextWithRemoteSpan(context.Background(), "4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")
	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.True(t, sc.IsRemote())
}
