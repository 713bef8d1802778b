package contract

import (
	"encoding/json"
	"fmt"
	"time"
)

type rawComponent struct {
	ComponentType string            `json:"component_type" validate:"required,component_type"`
	Amount        json.Number       `json:"amount" validate:"required"`
	Currency      string            `json:"currency" validate:"required,len=3"`
	Dimensions    map[string]string `json:"dimensions"`
	Description   string            `json:"description"`
	IsRefund      *bool             `json:"is_refund"`
	Meta          map[string]any    `json:"meta"`
	Metadata      map[string]any    `json:"metadata"`

	RefundOfComponentSemanticID string `json:"refund_of_component_semantic_id"`
	RefundOfSemanticID          string `json:"refund_of_semantic_id"`
}

type rawDetailContext struct {
	OrderDetailID string         `json:"order_detail_id" validate:"required"`
	EntityContext map[string]any `json:"entity_context"`
	FXContext     map[string]any `json:"fx_context"`
}

type rawPricingUpdated struct {
	EventID         string             `json:"event_id"`
	EventType       string             `json:"event_type" validate:"required"`
	SchemaVersion   string             `json:"schema_version"`
	OrderID         string             `json:"order_id" validate:"required"`
	Vertical        string             `json:"vertical"`
	Version         *int64             `json:"version" validate:"omitempty,gte=1"`
	Components      []rawComponent     `json:"components" validate:"required,min=1,dive"`
	EmittedAt       string             `json:"emitted_at" validate:"required"`
	EmitterService  string             `json:"emitter_service"`
	CustomerContext map[string]any     `json:"customer_context"`
	DetailContext   *rawDetailContext  `json:"detail_context"`
	DetailContexts  []rawDetailContext `json:"detail_contexts" validate:"omitempty,dive"`
	Totals          map[string]any     `json:"totals"`
	Meta            map[string]any     `json:"meta"`
	Metadata        map[string]any     `json:"metadata"`
}

type rawRefundIssued struct {
	EventID        string         `json:"event_id"`
	EventType      string         `json:"event_type" validate:"required"`
	SchemaVersion  string         `json:"schema_version"`
	OrderID        string         `json:"order_id" validate:"required"`
	RefundID       string         `json:"refund_id" validate:"required"`
	Version        *int64         `json:"version" validate:"omitempty,gte=1"`
	Components     []rawComponent `json:"components" validate:"required,min=1,dive"`
	EmittedAt      string         `json:"emitted_at" validate:"required"`
	EmitterService string         `json:"emitter_service"`
	Meta           map[string]any `json:"meta"`
	Metadata       map[string]any `json:"metadata"`
}

// ComponentEvent is the normalized form of PricingUpdated and RefundIssued.
type ComponentEvent struct {
	EventID        string
	EventType      string
	SchemaVersion  string
	OrderID        string
	RefundID       string
	Version        *int64
	EmittedAt      time.Time
	EmitterService string
	Vertical       string

	CustomerContext map[string]any
	Totals          map[string]any
	Meta            map[string]any
	// keyed by order_detail_id
	DetailContexts map[string]DetailContext

	Components []ComponentLine
}

type DetailContext struct {
	OrderDetailID string
	EntityContext map[string]any
	FXContext     map[string]any
}

type ComponentLine struct {
	ComponentType string
	Amount        int64
	Currency      string
	Dimensions    map[string]string
	Description   string
	IsRefund      *bool
	Meta          map[string]any
	RefundOf      string
}

// OptionalKey is the producer-supplied semantic discriminator, if any.
func (c ComponentLine) OptionalKey() string {
	if c.Meta == nil {
		return ""
	}
	s, _ := c.Meta["optional_key"].(string)
	return s
}

func decodePricing(raw []byte) (*ComponentEvent, error) {
	var in rawPricingUpdated
	if err := unmarshalStrict(raw, &in); err != nil {
		return nil, err
	}

	var v violations
	validateStruct(in, &v)

	out := &ComponentEvent{
		EventID:         in.EventID,
		EventType:       in.EventType,
		SchemaVersion:   in.SchemaVersion,
		OrderID:         in.OrderID,
		Version:         in.Version,
		EmitterService:  in.EmitterService,
		Vertical:        in.Vertical,
		CustomerContext: in.CustomerContext,
		Totals:          in.Totals,
		Meta:            firstMeta(in.Meta, in.Metadata),
		DetailContexts:  map[string]DetailContext{},
	}
	if in.EmittedAt != "" {
		out.EmittedAt = parseTimestamp("emitted_at", in.EmittedAt, &v)
	}

	// the array form wins over the legacy single context
	if len(in.DetailContexts) > 0 {
		for _, dc := range in.DetailContexts {
			out.DetailContexts[dc.OrderDetailID] = DetailContext(dc)
		}
	} else if in.DetailContext != nil {
		out.DetailContexts[in.DetailContext.OrderDetailID] = DetailContext(*in.DetailContext)
	}

	out.Components = adaptComponents(in.Components, &v)
	if err := v.rejection(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRefundIssued(raw []byte) (*ComponentEvent, error) {
	var in rawRefundIssued
	if err := unmarshalStrict(raw, &in); err != nil {
		return nil, err
	}

	var v violations
	validateStruct(in, &v)

	out := &ComponentEvent{
		EventID:        in.EventID,
		EventType:      in.EventType,
		SchemaVersion:  in.SchemaVersion,
		OrderID:        in.OrderID,
		RefundID:       in.RefundID,
		Version:        in.Version,
		EmitterService: in.EmitterService,
		Meta:           firstMeta(in.Meta, in.Metadata),
	}
	if in.EmittedAt != "" {
		out.EmittedAt = parseTimestamp("emitted_at", in.EmittedAt, &v)
	}

	out.Components = adaptComponents(in.Components, &v)
	for i, c := range out.Components {
		if c.RefundOf == "" {
			v.add(fmt.Sprintf("components[%d].refund_of_component_semantic_id", i), "required", "is required")
		}
	}
	if err := v.rejection(); err != nil {
		return nil, err
	}
	return out, nil
}

func adaptComponents(in []rawComponent, v *violations) []ComponentLine {
	out := make([]ComponentLine, 0, len(in))
	for i, c := range in {
		line := ComponentLine{
			Currency:    c.Currency,
			Dimensions:  c.Dimensions,
			Description: c.Description,
			IsRefund:    c.IsRefund,
			Meta:        firstMeta(c.Meta, c.Metadata),
			RefundOf:    c.RefundOfComponentSemanticID,
		}
		if line.RefundOf == "" {
			line.RefundOf = c.RefundOfSemanticID
		}
		if line.Dimensions == nil {
			line.Dimensions = map[string]string{}
		}
		if ct, ok := CanonicalComponentType(c.ComponentType); ok {
			line.ComponentType = ct
		}
		if amount := minorUnits(fmt.Sprintf("components[%d].amount", i), c.Amount, false, v); amount != nil {
			line.Amount = *amount
		}
		out = append(out, line)
	}
	return out
}
