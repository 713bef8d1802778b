package contract

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AffiliateShareback struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Rate     decimal.Decimal `json:"rate"`
	Basis    string          `json:"basis"`
}

type AffiliateTax struct {
	Type     string          `json:"type" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Rate     decimal.Decimal `json:"rate"`
	Basis    string          `json:"basis"`
}

type Affiliate struct {
	ResellerID   string              `json:"reseller_id"`
	ResellerName string              `json:"reseller_name"`
	Shareback    *AffiliateShareback `json:"partnerShareback" validate:"required"`
	Taxes        []AffiliateTax      `json:"taxes" validate:"omitempty,dive"`
	Meta         map[string]any      `json:"meta"`
}

type Cancellation struct {
	FeeAmount   json.Number `json:"fee_amount"`
	FeeCurrency string      `json:"fee_currency"`
}

type NestedSupplier struct {
	Status        string         `json:"status" validate:"required,supplier_status"`
	SupplierID    string         `json:"supplier_id" validate:"required"`
	BookingCode   string         `json:"booking_code"`
	SupplierRef   string         `json:"supplier_ref"`
	AmountDue     json.Number    `json:"amount_due"`
	Currency      string         `json:"currency" validate:"omitempty,len=3"`
	FXContext     map[string]any `json:"fx_context"`
	EntityContext map[string]any `json:"entity_context"`
	Affiliate     *Affiliate     `json:"affiliate"`
	Cancellation  *Cancellation  `json:"cancellation"`
}

type NestedSupplierEvent struct {
	eventCommon
	OrderDetailID string          `json:"order_detail_id" validate:"required"`
	Supplier      *NestedSupplier `json:"supplier" validate:"required"`
}

type LegacySupplierEvent struct {
	eventCommon
	OrderDetailID       string      `json:"order_detail_id" validate:"required"`
	SupplierID          string      `json:"supplier_id" validate:"required"`
	SupplierReferenceID string      `json:"supplier_reference_id"`
	Amount              json.Number `json:"amount"`
	Currency            string      `json:"currency" validate:"omitempty,len=3"`
	Status              string      `json:"status" validate:"omitempty,supplier_status"`
}

// SupplierPayload is the tagged union of both supplier shapes. Exactly one side is set.
type SupplierPayload struct {
	Nested *NestedSupplierEvent
	Legacy *LegacySupplierEvent
}

// AffiliateObligation is one amount owed to an affiliate party, truncated to minor units.
type AffiliateObligation struct {
	PartyID     string
	PartyName   string
	Kind        string
	Amount      int64
	Currency    string
	Rate        string
	Basis       string
	Description string
}

const (
	ObligationSupplier            = "SUPPLIER"
	ObligationAffiliateCommission = "AFFILIATE_COMMISSION"
	ObligationTaxWithholding      = "TAX_WITHHOLDING"
)

// SupplierEvent is the single internal representation handed to the normalizer.
type SupplierEvent struct {
	Shape          string
	EventID        string
	EventType      string
	SchemaVersion  string
	OrderID        string
	OrderDetailID  string
	EmittedAt      time.Time
	IdempotencyKey string
	EmitterService string

	Status            string
	SupplierID        string
	SupplierReference string
	BookingCode       string
	AmountDue         *int64
	Currency          string
	CancellationFee   *int64
	CancellationCurr  string
	EntityCode        string
	EntityContext     map[string]any
	FXContext         map[string]any
	Affiliate         []AffiliateObligation
	AffiliateRaw      map[string]any
	Metadata          map[string]any
}

var legacySupplierStatus = map[string]string{
	EventSupplierOrderConfirmed:  SupplierConfirmed,
	EventSupplierOrderIssued:     SupplierIssued,
	EventSupplierInvoiceReceived: SupplierInvoiced,
}

func decodeSupplier(raw []byte, probe map[string]json.RawMessage) (*SupplierEvent, error) {
	var payload SupplierPayload
	if _, nested := probe["supplier"]; nested {
		payload.Nested = &NestedSupplierEvent{}
		if err := unmarshalStrict(raw, payload.Nested); err != nil {
			return nil, err
		}
	} else {
		payload.Legacy = &LegacySupplierEvent{}
		if err := unmarshalStrict(raw, payload.Legacy); err != nil {
			return nil, err
		}
	}
	return payload.Normalize()
}

// Normalize validates whichever shape is present and adapts it to SupplierEvent.
func (p SupplierPayload) Normalize() (*SupplierEvent, error) {
	var v violations
	var out *SupplierEvent
	switch {
	case p.Nested != nil:
		validateStruct(p.Nested, &v)
		out = adaptNestedSupplier(p.Nested, &v)
	case p.Legacy != nil:
		validateStruct(p.Legacy, &v)
		out = adaptLegacySupplier(p.Legacy, &v)
	default:
		v.add("supplier", "required", "is required")
	}
	if err := v.rejection(); err != nil {
		return nil, err
	}
	return out, nil
}

func adaptSupplierCommon(c eventCommon, orderDetailID string, v *violations) *SupplierEvent {
	out := &SupplierEvent{
		EventID:        c.EventID,
		EventType:      c.EventType,
		SchemaVersion:  c.SchemaVersion,
		OrderID:        c.OrderID,
		OrderDetailID:  orderDetailID,
		IdempotencyKey: c.IdempotencyKey,
		EmitterService: c.EmitterService,
		Metadata:       firstMeta(c.Meta, c.Metadata),
	}
	if c.EmittedAt != "" {
		out.EmittedAt = parseTimestamp("emitted_at", c.EmittedAt, v)
	}
	return out
}

func adaptNestedSupplier(in *NestedSupplierEvent, v *violations) *SupplierEvent {
	out := adaptSupplierCommon(in.eventCommon, in.OrderDetailID, v)
	out.Shape = ShapeNested
	if in.Supplier == nil {
		return out
	}

	s := in.Supplier
	out.Status, _ = CanonicalSupplierStatus(s.Status)
	out.SupplierID = s.SupplierID
	out.SupplierReference = s.SupplierRef
	out.BookingCode = s.BookingCode
	out.AmountDue = minorUnits("supplier.amount_due", s.AmountDue, true, v)
	out.Currency = s.Currency
	out.EntityContext = s.EntityContext
	out.FXContext = s.FXContext
	if code, ok := s.EntityContext["entity_code"].(string); ok {
		out.EntityCode = code
	}

	if s.Cancellation != nil {
		out.CancellationFee = minorUnits("supplier.cancellation.fee_amount", s.Cancellation.FeeAmount, true, v)
		out.CancellationCurr = s.Cancellation.FeeCurrency
		if out.CancellationCurr == "" {
			out.CancellationCurr = out.Currency
		}
	}
	if out.Status == SupplierCancelledWithFee && out.CancellationFee == nil {
		v.add("supplier.cancellation.fee_amount", "required_if", "is required when status is %s", SupplierCancelledWithFee)
	}

	if s.Affiliate != nil {
		out.Affiliate = adaptAffiliate(s.Affiliate, v)
		out.AffiliateRaw = affiliateSnapshot(s.Affiliate)
	}
	return out
}

func adaptLegacySupplier(in *LegacySupplierEvent, v *violations) *SupplierEvent {
	out := adaptSupplierCommon(in.eventCommon, in.OrderDetailID, v)
	out.Shape = ShapeLegacy
	out.SupplierID = in.SupplierID
	out.SupplierReference = in.SupplierReferenceID
	out.AmountDue = minorUnits("amount", in.Amount, true, v)
	out.Currency = in.Currency

	if status, ok := CanonicalSupplierStatus(in.Status); ok {
		out.Status = status
	} else if status, ok := legacySupplierStatus[in.EventType]; ok {
		out.Status = status
	} else {
		v.add("status", "required", "is required for %s events without a supplier object", in.EventType)
	}
	if out.Status == SupplierCancelledWithFee {
		v.add("status", "unsupported", "%s requires the nested supplier shape", SupplierCancelledWithFee)
	}
	return out
}

func adaptAffiliate(a *Affiliate, v *violations) []AffiliateObligation {
	var out []AffiliateObligation
	if a.Shareback != nil {
		if a.Shareback.Amount.IsNegative() {
			v.add("supplier.affiliate.partnerShareback.amount", "gte", "must not be negative")
		}
		partyID := a.ResellerID
		if partyID == "" {
			partyID = "UNKNOWN"
		}
		partyName := a.ResellerName
		if partyName == "" {
			partyName = "Affiliate Partner"
		}
		out = append(out, AffiliateObligation{
			PartyID:     partyID,
			PartyName:   partyName,
			Kind:        ObligationAffiliateCommission,
			Amount:      a.Shareback.Amount.IntPart(),
			Currency:    a.Shareback.Currency,
			Rate:        a.Shareback.Rate.String(),
			Basis:       a.Shareback.Basis,
			Description: a.Shareback.Rate.Shift(2).StringFixed(0) + "% of " + a.Shareback.Basis,
		})
	}
	for _, tax := range a.Taxes {
		if tax.Amount.IsNegative() {
			v.add("supplier.affiliate.taxes.amount", "gte", "must not be negative")
		}
		out = append(out, AffiliateObligation{
			PartyID:     "TAX_" + tax.Type,
			PartyName:   tax.Type + " Tax",
			Kind:        ObligationTaxWithholding,
			Amount:      tax.Amount.IntPart(),
			Currency:    tax.Currency,
			Rate:        tax.Rate.String(),
			Basis:       tax.Basis,
			Description: tax.Rate.Shift(2).StringFixed(0) + "% " + tax.Type + " on " + tax.Basis,
		})
	}
	return out
}

// affiliateSnapshot keeps the producer's affiliate block verbatim for the row's JSON column.
func affiliateSnapshot(a *Affiliate) map[string]any {
	b, err := json.Marshal(a)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
