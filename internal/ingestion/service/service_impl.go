package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/pricingread/internal/contract"
	deadletterdomain "github.com/smallbiznis/pricingread/internal/deadletter/domain"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	ingestiondomain "github.com/smallbiznis/pricingread/internal/ingestion/domain"
	"github.com/smallbiznis/pricingread/internal/normalize"
	obscontext "github.com/smallbiznis/pricingread/internal/observability/context"
	"github.com/smallbiznis/pricingread/internal/observability/logger"
	"github.com/smallbiznis/pricingread/internal/observability/metrics"
	"github.com/smallbiznis/pricingread/internal/observability/tracing"
	"github.com/smallbiznis/pricingread/pkg/log/ctxlogger"
	"github.com/smallbiznis/pricingread/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	outcomeStored       = "stored"
	outcomeDeadLettered = "dead_lettered"
	outcomeFailed       = "failed"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Normalizer *normalize.Normalizer
	DeadLetter deadletterdomain.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	normalizer *normalize.Normalizer
	deadLetter deadletterdomain.Service
	metrics    *metrics.Metrics
}

func NewService(p ServiceParam) ingestiondomain.Service {
	m := p.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Service{
		log:        p.Log.Named("ingestion.service"),
		normalizer: p.Normalizer,
		deadLetter: p.DeadLetter,
		metrics:    m,
	}
}

func (s *Service) Ingest(ctx context.Context, raw []byte) (*ingestiondomain.Result, error) {
	start := time.Now()
	env := contract.Peek(raw)

	ctx = correlation.ForEvent(ctx, env.EventID)
	ctx = obscontext.WithEventType(ctx, env.EventType)
	ctx = ctxlogger.ContextWithOrderID(ctx, env.OrderID)
	ctx, span := otel.Tracer("pricingread/ingestion").Start(ctx, "ingest "+env.EventType)
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("event.type", env.EventType),
		attribute.String("order.id", env.OrderID),
	)...)

	log := logger.WithContext(ctx, s.log).With(zap.String("event_id", env.EventID))

	evt, err := contract.Decode(raw)
	if err == nil {
		var result *ingestiondomain.Result
		result, err = s.persist(ctx, evt)
		if err == nil {
			s.metrics.RecordIngested(ctx, string(evt.Family))
			s.metrics.ObserveIngest(ctx, string(evt.Family), outcomeStored, time.Since(start))
			log.Info("event ingested",
				zap.String("family", string(evt.Family)),
				zap.Any("rows", result.Details["rows_written"]),
			)
			return result, nil
		}
	}

	var rej *contract.Rejection
	if !errors.As(err, &rej) {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "storage failure")
		s.metrics.ObserveIngest(ctx, familyOf(evt), outcomeFailed, time.Since(start))
		log.Error("ingestion failed", zap.Error(err))
		return nil, fmt.Errorf("ingest %s: %w", env.EventType, err)
	}

	entry, dlqErr := s.deadLetter.Record(ctx, deadletterdomain.RecordRequest{
		Raw:       raw,
		Envelope:  env,
		Rejection: rej,
	})
	if dlqErr != nil {
		span.RecordError(tracing.SafeError(dlqErr))
		span.SetStatus(codes.Error, "dead-letter failure")
		s.metrics.ObserveIngest(ctx, familyOf(evt), outcomeFailed, time.Since(start))
		log.Error("dead-letter write failed", zap.String("error_kind", string(rej.Kind)), zap.Error(dlqErr))
		return nil, fmt.Errorf("dead-letter %s: %w", env.EventType, dlqErr)
	}

	span.SetAttributes(attribute.String("ingest.error_kind", string(rej.Kind)))
	s.metrics.RecordDeadLetter(ctx, env.EventType, string(rej.Class), string(rej.Kind))
	s.metrics.ObserveIngest(ctx, familyOf(evt), outcomeDeadLettered, time.Since(start))
	log.Warn("event dead-lettered",
		zap.String("dlq_id", entry.ID),
		zap.String("error_class", string(rej.Class)),
		zap.String("error_kind", string(rej.Kind)),
		zap.String("error_detail", rej.Detail),
	)

	details := map[string]any{
		"dlq_id":      entry.ID,
		"event_id":    entry.EventID,
		"error_class": string(rej.Class),
		"error_type":  string(rej.Kind),
	}
	if len(rej.Violations) > 0 {
		details["violations"] = rej.Violations
	}
	return &ingestiondomain.Result{
		Success: false,
		Message: "Event rejected: " + rej.Detail,
		Details: details,
	}, nil
}

// persist routes a decoded event to its family's normalizer. Rejections raised while
// normalizing come back as errors for the caller to dead-letter.
func (s *Service) persist(ctx context.Context, evt *contract.Event) (*ingestiondomain.Result, error) {
	switch evt.Family {
	case contract.FamilyPricing, contract.FamilyRefundIssued:
		var rows []*factdomain.PricingComponent
		var err error
		if evt.Family == contract.FamilyPricing {
			rows, err = s.normalizer.Pricing(ctx, evt.Component)
		} else {
			rows, err = s.normalizer.RefundIssued(ctx, evt.Component)
		}
		if err != nil {
			return nil, err
		}
		s.metrics.RecordRowsAppended(ctx, factdomain.PricingComponent{}.TableName(), len(rows))

		semanticIDs := make([]string, 0, len(rows))
		instanceIDs := make([]string, 0, len(rows))
		for _, row := range rows {
			semanticIDs = append(semanticIDs, row.SemanticID)
			instanceIDs = append(instanceIDs, row.InstanceID)
		}
		return &ingestiondomain.Result{
			Success: true,
			Message: fmt.Sprintf("Stored %d pricing components for order %s at version %d", len(rows), evt.Component.OrderID, rows[0].Version),
			Details: map[string]any{
				"family":              string(evt.Family),
				"order_id":            evt.Component.OrderID,
				"version":             rows[0].Version,
				"pricing_snapshot_id": rows[0].PricingSnapshotID,
				"rows_written":        len(rows),
				"semantic_ids":        semanticIDs,
				"instance_ids":        instanceIDs,
			},
		}, nil

	case contract.FamilyPayment:
		row, err := s.normalizer.Payment(ctx, evt.Payment)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordRowsAppended(ctx, row.TableName(), 1)
		return timelineResult(evt.Family, row.OrderID, row.Status, row.TimelineVersion, map[string]any{
			"payload_shape": row.PayloadShape,
		}), nil

	case contract.FamilySupplier:
		row, err := s.normalizer.Supplier(ctx, evt.Supplier)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordRowsAppended(ctx, row.TableName(), 1)
		return timelineResult(evt.Family, row.OrderID, row.Status, row.TimelineVersion, map[string]any{
			"order_detail_id":    row.OrderDetailID,
			"supplier_id":        row.SupplierID,
			"supplier_reference": row.SupplierReference,
			"payload_shape":      row.PayloadShape,
		}), nil

	case contract.FamilyRefundTimeline:
		row, err := s.normalizer.RefundTimeline(ctx, evt.Refund)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordRowsAppended(ctx, row.TableName(), 1)
		return timelineResult(evt.Family, row.OrderID, row.Status, row.TimelineVersion, map[string]any{
			"refund_id": row.RefundID,
		}), nil
	}
	return nil, contract.SchemaRejection(contract.KindUnknownEventType, "unroutable family: "+string(evt.Family))
}

func timelineResult(family contract.Family, orderID, status string, version int64, extra map[string]any) *ingestiondomain.Result {
	details := map[string]any{
		"family":           string(family),
		"order_id":         orderID,
		"status":           status,
		"timeline_version": version,
		"rows_written":     1,
	}
	for k, v := range extra {
		details[k] = v
	}
	return &ingestiondomain.Result{
		Success: true,
		Message: fmt.Sprintf("Stored %s %s for order %s at timeline version %d", family, status, orderID, version),
		Details: details,
	}
}

func familyOf(evt *contract.Event) string {
	if evt == nil {
		return "unknown"
	}
	return string(evt.Family)
}
