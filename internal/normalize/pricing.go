package normalize

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/pricingread/internal/contract"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	"github.com/smallbiznis/pricingread/internal/identity"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Pricing persists one snapshot of a PricingUpdated event under a single order version.
func (n *Normalizer) Pricing(ctx context.Context, evt *contract.ComponentEvent) ([]*factdomain.PricingComponent, error) {
	return n.components(ctx, contract.FamilyPricing, evt)
}

// RefundIssued persists component-level reversals after checking each one against its original.
func (n *Normalizer) RefundIssued(ctx context.Context, evt *contract.ComponentEvent) ([]*factdomain.PricingComponent, error) {
	return n.components(ctx, contract.FamilyRefundIssued, evt)
}

func (n *Normalizer) components(ctx context.Context, family contract.Family, evt *contract.ComponentEvent) ([]*factdomain.PricingComponent, error) {
	// originals are immutable, so they can be checked before entering the version scope
	for i := range evt.Components {
		line := evt.Components[i]
		if line.RefundOf == "" {
			continue
		}
		if err := n.checkRefund(ctx, evt.OrderID, line); err != nil {
			return nil, err
		}
	}

	snapshotID := uuid.NewString()
	evtID := eventID(evt.EventID)
	emitter := n.emitter(family, evt.EmitterService)
	var requested *int64
	if n.ingest.Get().AcceptProducerVersion {
		requested = evt.Version
	}

	return n.store.AppendPricing(ctx, evt.OrderID, requested, func(version int64) ([]*factdomain.PricingComponent, error) {
		ingestedAt := n.now()
		rows := make([]*factdomain.PricingComponent, 0, len(evt.Components))
		for _, line := range evt.Components {
			semanticID := identity.SemanticID(evt.OrderID, line.Dimensions, line.ComponentType, discriminator(evt, line))
			rows = append(rows, &factdomain.PricingComponent{
				SemanticID:         semanticID,
				InstanceID:         identity.InstanceID(semanticID, snapshotID),
				OrderID:            evt.OrderID,
				Version:            version,
				PricingSnapshotID:  snapshotID,
				ComponentType:      line.ComponentType,
				Amount:             line.Amount,
				Currency:           strings.ToUpper(line.Currency),
				Dimensions:         datatypes.NewJSONType(identity.Canonicalize(line.Dimensions)),
				Description:        line.Description,
				IsRefund:           isRefund(family, line),
				RefundOfSemanticID: optionalString(line.RefundOf),
				EventID:            evtID,
				EventType:          evt.EventType,
				EmitterService:     emitter,
				EmittedAt:          evt.EmittedAt,
				IngestedAt:         ingestedAt,
				Metadata:           componentMetadata(evt, line),
			})
		}

		n.log.Debug("pricing snapshot built",
			zap.String("order_id", evt.OrderID),
			zap.String("pricing_snapshot_id", snapshotID),
			zap.Int64("version", version),
			zap.Int("components", len(rows)),
		)
		return rows, nil
	})
}

// discriminator separates partial refunds of one charge from each other and from the charge.
func discriminator(evt *contract.ComponentEvent, line contract.ComponentLine) string {
	if key := strings.TrimSpace(line.OptionalKey()); key != "" {
		return key
	}
	if line.RefundOf != "" {
		return evt.RefundID
	}
	return ""
}

func isRefund(family contract.Family, line contract.ComponentLine) bool {
	if line.IsRefund != nil {
		return *line.IsRefund
	}
	return family == contract.FamilyRefundIssued || line.RefundOf != ""
}

func componentMetadata(evt *contract.ComponentEvent, line contract.ComponentLine) datatypes.JSONMap {
	var entity, fxCtx map[string]any
	if detailID := line.Dimensions["order_detail_id"]; detailID != "" {
		if dc, ok := evt.DetailContexts[detailID]; ok {
			entity, fxCtx = dc.EntityContext, dc.FXContext
		}
	}
	return metadata(
		"schema_version", evt.SchemaVersion,
		"vertical", evt.Vertical,
		"refund_id", evt.RefundID,
		"customer_context", evt.CustomerContext,
		"entity_context", entity,
		"fx_context", fxCtx,
		"totals", evt.Totals,
		"event_meta", evt.Meta,
		"meta", line.Meta,
	)
}

// checkRefund applies the reversal rules in order: the original must exist for the order,
// share its granularity and meaning, and the reversal must run against its direction.
func (n *Normalizer) checkRefund(ctx context.Context, orderID string, line contract.ComponentLine) error {
	rows, err := n.store.PricingBySemanticID(ctx, line.RefundOf)
	if err != nil {
		return err
	}

	var original *factdomain.PricingComponent
	for _, row := range rows {
		if row.OrderID == orderID && !row.IsRefund {
			original = row
		}
	}
	if original == nil {
		return contract.BusinessRejection(contract.KindMissingOriginalComponent,
			"refund references %s which does not exist for order %s", line.RefundOf, orderID)
	}

	if !identity.SameDimensions(original.Dimensions.Data(), line.Dimensions) {
		return contract.BusinessRejection(contract.KindGranularityMismatch,
			"refund dimensions %s do not match original %s",
			identity.DimensionKey(line.Dimensions), identity.DimensionKey(original.Dimensions.Data()))
	}

	if line.ComponentType != original.ComponentType && line.ComponentType != contract.ComponentRefund {
		return contract.BusinessRejection(contract.KindSemanticMismatch,
			"refund component type %s does not match original %s", line.ComponentType, original.ComponentType)
	}
	if !strings.EqualFold(line.Currency, original.Currency) {
		return contract.BusinessRejection(contract.KindSemanticMismatch,
			"refund currency %s does not match original %s", line.Currency, original.Currency)
	}

	if int64(contract.CanonicalSign(original.ComponentType))*line.Amount >= 0 {
		return contract.BusinessRejection(contract.KindInvalidAmountSign,
			"refund amount %d must run against the %s direction of %s",
			line.Amount, signName(contract.CanonicalSign(original.ComponentType)), original.ComponentType)
	}
	return nil
}

func signName(sign int) string {
	if sign < 0 {
		return "negative"
	}
	return "positive"
}
