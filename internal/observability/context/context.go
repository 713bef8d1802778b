package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type eventTypeKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithEventType tags the context with the event type currently being ingested.
func WithEventType(ctx context.Context, eventType string) context.Context {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return ctx
	}
	return context.WithValue(ctx, eventTypeKey{}, eventType)
}

func EventTypeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(eventTypeKey{}).(string); ok {
		return v
	}
	return ""
}
