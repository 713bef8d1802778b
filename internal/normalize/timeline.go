package normalize

import (
	"context"
	"strings"

	"github.com/smallbiznis/pricingread/internal/contract"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	"gorm.io/datatypes"
)

// Payment appends the next order-scoped payment transition.
func (n *Normalizer) Payment(ctx context.Context, evt *contract.PaymentEvent) (*factdomain.PaymentTimeline, error) {
	evtID := eventID(evt.EventID)
	emitter := n.emitter(contract.FamilyPayment, evt.EmitterService)

	return n.store.AppendPayment(ctx, evt.OrderID, func(current int64) (*factdomain.PaymentTimeline, error) {
		row := &factdomain.PaymentTimeline{
			EventID:               evtID,
			EventType:             evt.EventType,
			OrderID:               evt.OrderID,
			TimelineVersion:       current + 1,
			Status:                evt.Status,
			PaymentID:             evt.PaymentID,
			PGReferenceID:         evt.PGReferenceID,
			PaymentMethodChannel:  evt.MethodChannel,
			PaymentMethodProvider: evt.MethodProvider,
			PaymentMethodBrand:    evt.MethodBrand,
			Amount:                evt.Amount,
			Currency:              strings.ToUpper(evt.Currency),
			AuthorizedAmount:      evt.Authorized,
			CapturedAmount:        evt.Captured,
			CapturedAmountTotal:   evt.CapturedTotal,
			PayloadShape:          evt.Shape,
			IdempotencyKey:        optionalString(evt.IdempotencyKey),
			EmitterService:        emitter,
			EmittedAt:             evt.EmittedAt,
			IngestedAt:            n.now(),
			Metadata: metadata(
				"schema_version", evt.SchemaVersion,
				"bnpl_plan", evt.BNPLPlan,
				"meta", evt.Metadata,
			),
		}
		if len(evt.Instrument) > 0 {
			row.Instrument = datatypes.JSONMap(evt.Instrument)
		}
		return row, nil
	})
}

// Supplier appends the next transition of one supplier instance. A different supplier
// reference is a different instance with its own version counter.
func (n *Normalizer) Supplier(ctx context.Context, evt *contract.SupplierEvent) (*factdomain.SupplierTimeline, error) {
	key := factdomain.SupplierKey{
		OrderID:           evt.OrderID,
		OrderDetailID:     evt.OrderDetailID,
		SupplierID:        evt.SupplierID,
		SupplierReference: evt.SupplierReference,
	}
	evtID := eventID(evt.EventID)
	emitter := n.emitter(contract.FamilySupplier, evt.EmitterService)

	return n.store.AppendSupplier(ctx, key, func(current int64) (*factdomain.SupplierTimeline, error) {
		row := &factdomain.SupplierTimeline{
			EventID:                 evtID,
			EventType:               evt.EventType,
			OrderID:                 key.OrderID,
			OrderDetailID:           key.OrderDetailID,
			SupplierID:              key.SupplierID,
			SupplierReference:       key.SupplierReference,
			TimelineVersion:         current + 1,
			Status:                  evt.Status,
			BookingCode:             evt.BookingCode,
			AmountDue:               evt.AmountDue,
			Currency:                strings.ToUpper(evt.Currency),
			CancellationFeeAmount:   evt.CancellationFee,
			CancellationFeeCurrency: strings.ToUpper(evt.CancellationCurr),
			EntityCode:              evt.EntityCode,
			PayableLines:            datatypes.NewJSONType(payableLines(evt)),
			PayloadShape:            evt.Shape,
			IdempotencyKey:          optionalString(evt.IdempotencyKey),
			EmitterService:          emitter,
			EmittedAt:               evt.EmittedAt,
			IngestedAt:              n.now(),
			Metadata: metadata(
				"schema_version", evt.SchemaVersion,
				"entity_context", evt.EntityContext,
				"fx_context", evt.FXContext,
				"meta", evt.Metadata,
			),
		}
		if len(evt.AffiliateRaw) > 0 {
			row.Affiliate = datatypes.JSONMap(evt.AffiliateRaw)
		}
		return row, nil
	})
}

// payableLines lists what the supplier row owes as written, before any status is applied.
func payableLines(evt *contract.SupplierEvent) []factdomain.PayableLine {
	lines := make([]factdomain.PayableLine, 0, len(evt.Affiliate)+1)
	if evt.AmountDue != nil {
		lines = append(lines, factdomain.PayableLine{
			ObligationType: contract.ObligationSupplier,
			PartyID:        evt.SupplierID,
			PartyName:      evt.SupplierID,
			Amount:         *evt.AmountDue,
			Currency:       strings.ToUpper(evt.Currency),
		})
	}
	for _, a := range evt.Affiliate {
		lines = append(lines, factdomain.PayableLine{
			ObligationType: a.Kind,
			PartyID:        a.PartyID,
			PartyName:      a.PartyName,
			Amount:         a.Amount,
			Currency:       strings.ToUpper(a.Currency),
			Basis:          a.Basis,
			Rate:           a.Rate,
			Description:    a.Description,
		})
	}
	return lines
}

// RefundTimeline appends the next transition of one refund.
func (n *Normalizer) RefundTimeline(ctx context.Context, evt *contract.RefundTimelineEvent) (*factdomain.RefundTimeline, error) {
	evtID := eventID(evt.EventID)
	emitter := n.emitter(contract.FamilyRefundTimeline, evt.EmitterService)

	return n.store.AppendRefund(ctx, evt.RefundID, func(current int64) (*factdomain.RefundTimeline, error) {
		return &factdomain.RefundTimeline{
			EventID:         evtID,
			EventType:       evt.EventType,
			OrderID:         evt.OrderID,
			RefundID:        evt.RefundID,
			TimelineVersion: current + 1,
			Status:          evt.Status,
			RefundAmount:    evt.Amount,
			Currency:        strings.ToUpper(evt.Currency),
			RefundReason:    evt.Reason,
			EmitterService:  emitter,
			EmittedAt:       evt.EmittedAt,
			IngestedAt:      n.now(),
			Metadata: metadata(
				"schema_version", evt.SchemaVersion,
				"meta", evt.Metadata,
			),
		}, nil
	})
}
