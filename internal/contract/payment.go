package contract

import (
	"encoding/json"
	"time"
)

const (
	ShapeNested = "nested"
	ShapeLegacy = "legacy"
)

type NestedPaymentMethod struct {
	Channel  string `json:"channel" validate:"required"`
	Provider string `json:"provider" validate:"required"`
	Brand    string `json:"brand"`
}

type NestedPayment struct {
	Status              string               `json:"status" validate:"required,payment_status"`
	PaymentID           string               `json:"payment_id"`
	PGReferenceID       string               `json:"pg_reference_id"`
	PaymentMethod       *NestedPaymentMethod `json:"payment_method" validate:"required"`
	Currency            string               `json:"currency" validate:"required,len=3"`
	AuthorizedAmount    json.Number          `json:"authorized_amount"`
	AuthorizedAt        string               `json:"authorized_at"`
	CapturedAmount      json.Number          `json:"captured_amount"`
	CapturedAmountTotal json.Number          `json:"captured_amount_total"`
	CapturedAt          string               `json:"captured_at"`
	Instrument          map[string]any       `json:"instrument"`
	BNPLPlan            map[string]any       `json:"bnpl_plan"`
}

// NestedPaymentEvent is the current payment lifecycle shape.
type NestedPaymentEvent struct {
	eventCommon
	Payment *NestedPayment `json:"payment" validate:"required"`
}

// LegacyPaymentEvent is the flat pre-lifecycle shape. It carries no status; every
// legacy event is a capture.
type LegacyPaymentEvent struct {
	eventCommon
	PaymentMethod string      `json:"payment_method"`
	Amount        json.Number `json:"amount" validate:"required"`
	Currency      string      `json:"currency" validate:"required,len=3"`
	PGReferenceID string      `json:"pg_reference_id"`
}

// PaymentPayload is the tagged union of both payment shapes. Exactly one side is set.
type PaymentPayload struct {
	Nested *NestedPaymentEvent
	Legacy *LegacyPaymentEvent
}

// PaymentEvent is the single internal representation handed to the normalizer.
type PaymentEvent struct {
	Shape          string
	EventID        string
	EventType      string
	SchemaVersion  string
	OrderID        string
	EmittedAt      time.Time
	IdempotencyKey string
	EmitterService string

	Status         string
	PaymentID      string
	PGReferenceID  string
	MethodChannel  string
	MethodProvider string
	MethodBrand    string
	Currency       string
	Amount         *int64
	Authorized     *int64
	Captured       *int64
	CapturedTotal  *int64
	Instrument     map[string]any
	BNPLPlan       map[string]any
	Metadata       map[string]any
}

func decodePayment(raw []byte, probe map[string]json.RawMessage) (*PaymentEvent, error) {
	var payload PaymentPayload
	if _, nested := probe["payment"]; nested {
		payload.Nested = &NestedPaymentEvent{}
		if err := unmarshalStrict(raw, payload.Nested); err != nil {
			return nil, err
		}
	} else {
		payload.Legacy = &LegacyPaymentEvent{}
		if err := unmarshalStrict(raw, payload.Legacy); err != nil {
			return nil, err
		}
	}
	return payload.Normalize()
}

// Normalize validates whichever shape is present and adapts it to PaymentEvent.
func (p PaymentPayload) Normalize() (*PaymentEvent, error) {
	var v violations
	var out *PaymentEvent
	switch {
	case p.Nested != nil:
		validateStruct(p.Nested, &v)
		out = adaptNestedPayment(p.Nested, &v)
	case p.Legacy != nil:
		validateStruct(p.Legacy, &v)
		out = adaptLegacyPayment(p.Legacy, &v)
	default:
		v.add("payment", "required", "is required")
	}
	if err := v.rejection(); err != nil {
		return nil, err
	}
	return out, nil
}

func adaptPaymentCommon(c eventCommon, v *violations) *PaymentEvent {
	out := &PaymentEvent{
		EventID:        c.EventID,
		EventType:      c.EventType,
		SchemaVersion:  c.SchemaVersion,
		OrderID:        c.OrderID,
		IdempotencyKey: c.IdempotencyKey,
		EmitterService: c.EmitterService,
		Metadata:       firstMeta(c.Meta, c.Metadata),
	}
	if c.EmittedAt != "" {
		out.EmittedAt = parseTimestamp("emitted_at", c.EmittedAt, v)
	}
	return out
}

func adaptNestedPayment(in *NestedPaymentEvent, v *violations) *PaymentEvent {
	out := adaptPaymentCommon(in.eventCommon, v)
	out.Shape = ShapeNested
	if in.Payment == nil {
		return out
	}

	p := in.Payment
	out.Status, _ = CanonicalPaymentStatus(p.Status)
	out.PaymentID = p.PaymentID
	out.PGReferenceID = p.PGReferenceID
	out.Currency = p.Currency
	out.Authorized = minorUnits("payment.authorized_amount", p.AuthorizedAmount, true, v)
	out.Captured = minorUnits("payment.captured_amount", p.CapturedAmount, true, v)
	out.CapturedTotal = minorUnits("payment.captured_amount_total", p.CapturedAmountTotal, true, v)
	out.Instrument = p.Instrument
	out.BNPLPlan = p.BNPLPlan
	if p.PaymentMethod != nil {
		out.MethodChannel = p.PaymentMethod.Channel
		out.MethodProvider = p.PaymentMethod.Provider
		out.MethodBrand = p.PaymentMethod.Brand
	}

	// the row amount is what moved in this transition
	switch {
	case out.Captured != nil:
		out.Amount = out.Captured
	case out.Authorized != nil:
		out.Amount = out.Authorized
	}
	return out
}

func adaptLegacyPayment(in *LegacyPaymentEvent, v *violations) *PaymentEvent {
	out := adaptPaymentCommon(in.eventCommon, v)
	out.Shape = ShapeLegacy
	out.Status = PaymentCaptured
	out.MethodChannel = in.PaymentMethod
	out.PGReferenceID = in.PGReferenceID
	out.Currency = in.Currency
	out.Amount = minorUnits("amount", in.Amount, true, v)
	out.Captured = out.Amount
	return out
}
