package contract

import (
	"encoding/json"
	"time"
)

type rawRefundLifecycle struct {
	eventCommon
	RefundID     string      `json:"refund_id" validate:"required"`
	Status       string      `json:"status" validate:"omitempty,refund_status"`
	RefundAmount json.Number `json:"refund_amount" validate:"required"`
	Currency     string      `json:"currency" validate:"required,len=3"`
	RefundReason string      `json:"refund_reason"`
}

type RefundTimelineEvent struct {
	EventID        string
	EventType      string
	SchemaVersion  string
	OrderID        string
	RefundID       string
	EmittedAt      time.Time
	EmitterService string
	Status         string
	Amount         int64
	Currency       string
	Reason         string
	Metadata       map[string]any
}

var refundStatusByEvent = map[string]string{
	EventRefundInitiated: RefundInitiated,
	EventRefundClosed:    RefundClosed,
}

func decodeRefundTimeline(raw []byte) (*RefundTimelineEvent, error) {
	var in rawRefundLifecycle
	if err := unmarshalStrict(raw, &in); err != nil {
		return nil, err
	}

	var v violations
	validateStruct(in, &v)

	out := &RefundTimelineEvent{
		EventID:        in.EventID,
		EventType:      in.EventType,
		SchemaVersion:  in.SchemaVersion,
		OrderID:        in.OrderID,
		RefundID:       in.RefundID,
		EmitterService: in.EmitterService,
		Currency:       in.Currency,
		Reason:         in.RefundReason,
		Metadata:       firstMeta(in.Meta, in.Metadata),
	}
	if in.EmittedAt != "" {
		out.EmittedAt = parseTimestamp("emitted_at", in.EmittedAt, &v)
	}
	if amount := minorUnits("refund_amount", in.RefundAmount, true, &v); amount != nil {
		out.Amount = *amount
	}

	// the event type decides the status; RefundLifecycle must say it explicitly
	if status, ok := refundStatusByEvent[in.EventType]; ok {
		out.Status = status
	} else if status, ok := CanonicalRefundStatus(in.Status); ok {
		out.Status = status
	} else {
		v.add("status", "required", "is required for %s events", in.EventType)
	}

	if err := v.rejection(); err != nil {
		return nil, err
	}
	return out, nil
}
