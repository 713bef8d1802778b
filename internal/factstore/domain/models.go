// Package domain contains the append-only fact tables.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PricingComponent is one priced line item at one pricing snapshot.
type PricingComponent struct {
	ID                 snowflake.ID                          `gorm:"primaryKey" json:"id"`
	SemanticID         string                                `gorm:"size:191;not null;index" json:"semantic_id"`
	InstanceID         string                                `gorm:"type:text;not null" json:"instance_id"`
	OrderID            string                                `gorm:"size:191;not null;index:idx_pricing_components_order_version,priority:1" json:"order_id"`
	Version            int64                                 `gorm:"not null;index:idx_pricing_components_order_version,priority:2" json:"version"`
	PricingSnapshotID  string                                `gorm:"type:text;not null" json:"pricing_snapshot_id"`
	ComponentType      string                                `gorm:"type:text;not null" json:"component_type"`
	Amount             int64                                 `gorm:"not null" json:"amount"`
	Currency           string                                `gorm:"type:text;not null" json:"currency"`
	Dimensions         datatypes.JSONType[map[string]string] `json:"dimensions"`
	Description        string                                `gorm:"type:text" json:"description,omitempty"`
	IsRefund           bool                                  `gorm:"not null;default:false" json:"is_refund"`
	RefundOfSemanticID *string                               `gorm:"size:191;index" json:"refund_of_semantic_id,omitempty"`
	EventID            string                                `gorm:"type:text;not null" json:"event_id"`
	EventType          string                                `gorm:"type:text;not null" json:"event_type"`
	EmitterService     string                                `gorm:"type:text" json:"emitter_service"`
	EmittedAt          time.Time                             `gorm:"not null" json:"emitted_at"`
	IngestedAt         time.Time                             `gorm:"not null" json:"ingested_at"`
	Metadata           datatypes.JSONMap                     `json:"metadata,omitempty"`
}

func (PricingComponent) TableName() string { return "pricing_components" }

// PaymentTimeline is one payment lifecycle transition; versions are per order.
type PaymentTimeline struct {
	ID                    snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventID               string            `gorm:"type:text;not null" json:"event_id"`
	EventType             string            `gorm:"type:text;not null" json:"event_type"`
	OrderID               string            `gorm:"size:191;not null;index:idx_payment_timeline_order_version,priority:1" json:"order_id"`
	TimelineVersion       int64             `gorm:"not null;index:idx_payment_timeline_order_version,priority:2" json:"timeline_version"`
	Status                string            `gorm:"type:text;not null" json:"status"`
	PaymentID             string            `gorm:"type:text" json:"payment_id,omitempty"`
	PGReferenceID         string            `gorm:"type:text" json:"pg_reference_id,omitempty"`
	PaymentMethodChannel  string            `gorm:"type:text" json:"payment_method_channel,omitempty"`
	PaymentMethodProvider string            `gorm:"type:text" json:"payment_method_provider,omitempty"`
	PaymentMethodBrand    string            `gorm:"type:text" json:"payment_method_brand,omitempty"`
	Amount                *int64            `json:"amount,omitempty"`
	Currency              string            `gorm:"type:text" json:"currency"`
	AuthorizedAmount      *int64            `json:"authorized_amount,omitempty"`
	CapturedAmount        *int64            `json:"captured_amount,omitempty"`
	CapturedAmountTotal   *int64            `json:"captured_amount_total,omitempty"`
	Instrument            datatypes.JSONMap `json:"instrument,omitempty"`
	PayloadShape          string            `gorm:"type:text;not null" json:"payload_shape"`
	IdempotencyKey        *string           `gorm:"type:text" json:"idempotency_key,omitempty"`
	EmitterService        string            `gorm:"type:text" json:"emitter_service"`
	EmittedAt             time.Time         `gorm:"not null" json:"emitted_at"`
	IngestedAt            time.Time         `gorm:"not null" json:"ingested_at"`
	Metadata              datatypes.JSONMap `json:"metadata,omitempty"`
}

func (PaymentTimeline) TableName() string { return "payment_timeline" }

// PayableLine is one affiliate or tax obligation carried by a supplier row.
type PayableLine struct {
	ObligationType string `json:"obligation_type"`
	PartyID        string `json:"party_id"`
	PartyName      string `json:"party_name"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Basis          string `json:"calculation_basis,omitempty"`
	Rate           string `json:"calculation_rate,omitempty"`
	Description    string `json:"calculation_description,omitempty"`
}

// SupplierTimeline is one supplier lifecycle transition. Versions are scoped to the
// supplier instance (order, detail, supplier, supplier reference).
type SupplierTimeline struct {
	ID                      snowflake.ID                      `gorm:"primaryKey" json:"id"`
	EventID                 string                            `gorm:"type:text;not null" json:"event_id"`
	EventType               string                            `gorm:"type:text;not null" json:"event_type"`
	OrderID                 string                            `gorm:"size:191;not null;index:idx_supplier_timeline_instance,priority:1" json:"order_id"`
	OrderDetailID           string                            `gorm:"size:191;not null;index:idx_supplier_timeline_instance,priority:2" json:"order_detail_id"`
	SupplierID              string                            `gorm:"size:191;not null;index:idx_supplier_timeline_instance,priority:3" json:"supplier_id"`
	SupplierReference       string                            `gorm:"size:191;not null;default:'';index:idx_supplier_timeline_instance,priority:4" json:"supplier_reference"`
	TimelineVersion         int64                             `gorm:"not null;index:idx_supplier_timeline_instance,priority:5" json:"supplier_timeline_version"`
	Status                  string                            `gorm:"type:text;not null" json:"status"`
	BookingCode             string                            `gorm:"type:text" json:"booking_code,omitempty"`
	AmountDue               *int64                            `json:"amount_due,omitempty"`
	Currency                string                            `gorm:"type:text" json:"currency,omitempty"`
	CancellationFeeAmount   *int64                            `json:"cancellation_fee_amount,omitempty"`
	CancellationFeeCurrency string                            `gorm:"type:text" json:"cancellation_fee_currency,omitempty"`
	EntityCode              string                            `gorm:"type:text" json:"entity_code,omitempty"`
	Affiliate               datatypes.JSONMap                 `json:"affiliate,omitempty"`
	PayableLines            datatypes.JSONType[[]PayableLine] `json:"payable_lines"`
	PayloadShape            string                            `gorm:"type:text;not null" json:"payload_shape"`
	IdempotencyKey          *string                           `gorm:"type:text" json:"idempotency_key,omitempty"`
	EmitterService          string                            `gorm:"type:text" json:"emitter_service"`
	EmittedAt               time.Time                         `gorm:"not null" json:"emitted_at"`
	IngestedAt              time.Time                         `gorm:"not null" json:"ingested_at"`
	Metadata                datatypes.JSONMap                 `json:"metadata,omitempty"`
}

func (SupplierTimeline) TableName() string { return "supplier_timeline" }

// Key returns the supplier instance this row belongs to.
func (s SupplierTimeline) Key() SupplierKey {
	return SupplierKey{
		OrderID:           s.OrderID,
		OrderDetailID:     s.OrderDetailID,
		SupplierID:        s.SupplierID,
		SupplierReference: s.SupplierReference,
	}
}

// RefundTimeline is one refund lifecycle transition; versions are per refund id.
type RefundTimeline struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventID         string            `gorm:"type:text;not null" json:"event_id"`
	EventType       string            `gorm:"type:text;not null" json:"event_type"`
	OrderID         string            `gorm:"size:191;not null;index" json:"order_id"`
	RefundID        string            `gorm:"size:191;not null;index:idx_refund_timeline_refund_version,priority:1" json:"refund_id"`
	TimelineVersion int64             `gorm:"not null;index:idx_refund_timeline_refund_version,priority:2" json:"refund_timeline_version"`
	Status          string            `gorm:"type:text;not null" json:"status"`
	RefundAmount    int64             `gorm:"not null" json:"refund_amount"`
	Currency        string            `gorm:"type:text;not null" json:"currency"`
	RefundReason    string            `gorm:"type:text" json:"refund_reason,omitempty"`
	EmitterService  string            `gorm:"type:text" json:"emitter_service"`
	EmittedAt       time.Time         `gorm:"not null" json:"emitted_at"`
	IngestedAt      time.Time         `gorm:"not null" json:"ingested_at"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
}

func (RefundTimeline) TableName() string { return "refund_timeline" }

// Models lists every fact table, in creation order.
func Models() []any {
	return []any{&PricingComponent{}, &PaymentTimeline{}, &SupplierTimeline{}, &RefundTimeline{}}
}
