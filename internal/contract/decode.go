package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Envelope carries the routing fields every event shares. It is read leniently so a
// dead-letter entry can still record what it could about a broken payload.
type Envelope struct {
	EventID   string
	EventType string
	OrderID   string
}

// eventCommon holds the fields shared by the lifecycle event shapes.
type eventCommon struct {
	EventID        string         `json:"event_id"`
	EventType      string         `json:"event_type" validate:"required"`
	SchemaVersion  string         `json:"schema_version"`
	OrderID        string         `json:"order_id" validate:"required"`
	EmittedAt      string         `json:"emitted_at" validate:"required"`
	IdempotencyKey string         `json:"idempotency_key"`
	EmitterService string         `json:"emitter_service"`
	Meta           map[string]any `json:"meta"`
	Metadata       map[string]any `json:"metadata"`
}

// Event is the validated, shape-normalized form of one inbound event.
// Exactly one of the family payloads is set.
type Event struct {
	Family    Family
	Envelope  Envelope
	Component *ComponentEvent
	Payment   *PaymentEvent
	Supplier  *SupplierEvent
	Refund    *RefundTimelineEvent
}

// Peek extracts the envelope without validating anything.
func Peek(raw []byte) Envelope {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Envelope{}
	}
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return Envelope{EventID: str("event_id"), EventType: str("event_type"), OrderID: str("order_id")}
}

// Decode validates raw against the contract of its declared event type and normalizes it.
// Every failure is a *Rejection.
func Decode(raw []byte) (*Event, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, SchemaRejection(KindMalformedPayload, "payload is not a JSON object: "+err.Error())
	}

	var eventType string
	if rawType, ok := probe["event_type"]; ok {
		if err := json.Unmarshal(rawType, &eventType); err != nil {
			return nil, SchemaRejection(KindSchemaViolation, "event_type must be a string",
				Violation{Field: "event_type", Code: "type", Message: "must be a string"})
		}
	}
	if strings.TrimSpace(eventType) == "" {
		return nil, SchemaRejection(KindMissingEventType, "event missing event_type field")
	}

	family, ok := FamilyOf(eventType)
	if !ok {
		return nil, SchemaRejection(KindUnknownEventType, "unknown event_type: "+eventType)
	}

	evt := &Event{Family: family}
	var err error
	switch family {
	case FamilyPricing:
		evt.Component, err = decodePricing(raw)
	case FamilyRefundIssued:
		evt.Component, err = decodeRefundIssued(raw)
	case FamilyPayment:
		evt.Payment, err = decodePayment(raw, probe)
	case FamilySupplier:
		evt.Supplier, err = decodeSupplier(raw, probe)
	case FamilyRefundTimeline:
		evt.Refund, err = decodeRefundTimeline(raw)
	}
	if err != nil {
		return nil, err
	}

	evt.Envelope = Peek(raw)
	return evt, nil
}

// unmarshalStrict decodes into dst keeping numbers exact; type errors become violations.
func unmarshalStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	err := dec.Decode(dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "payload"
		}
		return SchemaRejection(KindSchemaViolation,
			fmt.Sprintf("%s: expected %s, got %s", field, typeErr.Type, typeErr.Value),
			Violation{Field: field, Code: "type", Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)})
	}
	return SchemaRejection(KindMalformedPayload, err.Error())
}

// minorUnits converts a JSON number to an integer minor-unit amount.
func minorUnits(field string, n json.Number, nonNegative bool, out *violations) *int64 {
	if n == "" {
		return nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		out.add(field, "type", "must be a number")
		return nil
	}
	if !d.IsInteger() {
		out.add(field, "integer", "must be an integer amount in minor units, got %s", n)
		return nil
	}
	if nonNegative && d.IsNegative() {
		out.add(field, "gte", "must not be negative")
		return nil
	}
	v := d.IntPart()
	return &v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts RFC3339 and zone-less ISO timestamps; zone-less values are UTC.
func parseTimestamp(field, v string, out *violations) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	out.add(field, "timestamp", "must be an ISO-8601 timestamp, got %q", v)
	return time.Time{}
}

// firstMeta returns meta when non-empty, else the legacy metadata map.
func firstMeta(meta, metadata map[string]any) map[string]any {
	if len(meta) > 0 {
		return meta
	}
	return metadata
}
