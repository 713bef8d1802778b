package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricingread/internal/config"
	"github.com/smallbiznis/pricingread/internal/factstore/domain"
	"github.com/smallbiznis/pricingread/internal/keylock"
	"github.com/smallbiznis/pricingread/pkg/db"
	"github.com/smallbiznis/pricingread/pkg/db/option"
	"github.com/smallbiznis/pricingread/pkg/db/pagination"
	"github.com/smallbiznis/pricingread/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTxAttempts = 3

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Locker keylock.Locker
	Ingest *config.IngestConfigHolder
}

type store struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	locker keylock.Locker
	ingest *config.IngestConfigHolder

	pricing   repository.Repository[domain.PricingComponent]
	payments  repository.Repository[domain.PaymentTimeline]
	suppliers repository.Repository[domain.SupplierTimeline]
	refunds   repository.Repository[domain.RefundTimeline]
}

func NewStore(p Params) domain.Store {
	return &store{
		db:     p.DB,
		log:    p.Log.Named("factstore.repository"),
		genID:  p.GenID,
		locker: p.Locker,
		ingest: p.Ingest,

		pricing:   repository.ProvideStore[domain.PricingComponent](p.DB),
		payments:  repository.ProvideStore[domain.PaymentTimeline](p.DB),
		suppliers: repository.ProvideStore[domain.SupplierTimeline](p.DB),
		refunds:   repository.ProvideStore[domain.RefundTimeline](p.DB),
	}
}

func (s *store) AppendPricing(ctx context.Context, orderID string, requested *int64, build domain.PricingBuilder) ([]*domain.PricingComponent, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidScope
	}

	var out []*domain.PricingComponent
	err := s.withScope(ctx, "pricing:"+orderID, func(tx *gorm.DB) error {
		version, err := s.pricingVersion(ctx, tx, orderID, requested)
		if err != nil {
			return err
		}
		rows, err := build(version)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return domain.ErrEmptyAppend
		}
		for _, row := range rows {
			if row.ID == 0 {
				row.ID = s.genID.Generate()
			}
			row.Version = version
		}
		if err := s.pricing.WithTrx(tx).BatchCreate(ctx, rows); err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// pricingVersion honors a requested version that is still free for the order. A taken
// one, such as a resubmitted event, falls back to max+1 so occurrences stay distinct.
func (s *store) pricingVersion(ctx context.Context, tx *gorm.DB, orderID string, requested *int64) (int64, error) {
	if requested != nil && *requested > 0 {
		taken, err := s.pricing.WithTrx(tx).FindOne(ctx, &domain.PricingComponent{OrderID: orderID, Version: *requested})
		if err != nil {
			return 0, err
		}
		if taken == nil {
			return *requested, nil
		}
		s.log.Debug("requested pricing version taken",
			zap.String("order_id", orderID),
			zap.Int64("requested_version", *requested),
		)
	}

	current, err := s.pricing.WithTrx(tx).Max(ctx, "version", &domain.PricingComponent{OrderID: orderID})
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (s *store) AppendPayment(ctx context.Context, orderID string, build domain.PaymentBuilder) (*domain.PaymentTimeline, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidScope
	}

	var out *domain.PaymentTimeline
	err := s.withScope(ctx, "payment:"+orderID, func(tx *gorm.DB) error {
		current, err := s.payments.WithTrx(tx).Max(ctx, "timeline_version", &domain.PaymentTimeline{OrderID: orderID})
		if err != nil {
			return err
		}
		row, err := build(current)
		if err != nil {
			return err
		}
		if row == nil {
			return domain.ErrEmptyAppend
		}
		if row.ID == 0 {
			row.ID = s.genID.Generate()
		}
		if err := s.payments.WithTrx(tx).Create(ctx, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store) AppendSupplier(ctx context.Context, key domain.SupplierKey, build domain.SupplierBuilder) (*domain.SupplierTimeline, error) {
	if key.OrderID == "" || key.OrderDetailID == "" || key.SupplierID == "" {
		return nil, domain.ErrInvalidScope
	}

	var out *domain.SupplierTimeline
	err := s.withScope(ctx, "supplier:"+key.String(), func(tx *gorm.DB) error {
		// supplier_reference may legitimately be empty, so the key cannot be a struct filter
		current, err := s.suppliers.WithTrx(tx).Max(ctx, "timeline_version", nil,
			option.WithWhere("order_id = ? AND order_detail_id = ? AND supplier_id = ? AND supplier_reference = ?",
				key.OrderID, key.OrderDetailID, key.SupplierID, key.SupplierReference),
		)
		if err != nil {
			return err
		}
		row, err := build(current)
		if err != nil {
			return err
		}
		if row == nil {
			return domain.ErrEmptyAppend
		}
		if row.ID == 0 {
			row.ID = s.genID.Generate()
		}
		if err := s.suppliers.WithTrx(tx).Create(ctx, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store) AppendRefund(ctx context.Context, refundID string, build domain.RefundBuilder) (*domain.RefundTimeline, error) {
	if refundID == "" {
		return nil, domain.ErrInvalidScope
	}

	var out *domain.RefundTimeline
	err := s.withScope(ctx, "refund:"+refundID, func(tx *gorm.DB) error {
		current, err := s.refunds.WithTrx(tx).Max(ctx, "timeline_version", &domain.RefundTimeline{RefundID: refundID})
		if err != nil {
			return err
		}
		row, err := build(current)
		if err != nil {
			return err
		}
		if row == nil {
			return domain.ErrEmptyAppend
		}
		if row.ID == 0 {
			row.ID = s.genID.Generate()
		}
		if err := s.refunds.WithTrx(tx).Create(ctx, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withScope runs fn as the read-max-then-insert critical section for one version scope.
// The key lock serializes writers; on postgres an advisory lock covers writers that do
// not share the lock backend.
func (s *store) withScope(ctx context.Context, key string, fn func(tx *gorm.DB) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.ingest.Get().VersionLockTimeout)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, key)
	if err != nil {
		if errors.Is(err, keylock.ErrLockTimeout) {
			return fmt.Errorf("%w: %s", domain.ErrVersionTimeout, key)
		}
		return fmt.Errorf("acquire version lock: %w", err)
	}
	defer release()

	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if tx.Dialector.Name() == "postgres" {
				if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
					return err
				}
			}
			return fn(tx)
		})
		if err == nil || attempt >= maxTxAttempts || !db.IsRetryableTxErr(err) {
			return err
		}
		s.log.Warn("retrying version assignment",
			zap.String("scope", key),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

func (s *store) PricingByOrder(ctx context.Context, orderID string) ([]*domain.PricingComponent, error) {
	return s.pricing.Find(ctx, &domain.PricingComponent{OrderID: orderID},
		option.WithOrder("version ASC", "ingested_at ASC", "id ASC"),
	)
}

func (s *store) PricingBySemanticID(ctx context.Context, semanticID string) ([]*domain.PricingComponent, error) {
	return s.pricing.Find(ctx, &domain.PricingComponent{SemanticID: semanticID},
		option.WithOrder("version ASC", "ingested_at ASC", "id ASC"),
	)
}

func (s *store) RefundsOf(ctx context.Context, semanticID string) ([]*domain.PricingComponent, error) {
	return s.pricing.Find(ctx, nil,
		option.WithWhere("refund_of_semantic_id = ?", semanticID),
		option.WithOrder("version ASC", "ingested_at ASC", "id ASC"),
	)
}

func (s *store) PaymentsByOrder(ctx context.Context, orderID string) ([]*domain.PaymentTimeline, error) {
	return s.payments.Find(ctx, &domain.PaymentTimeline{OrderID: orderID},
		option.WithOrder("timeline_version ASC", "ingested_at ASC", "id ASC"),
	)
}

func (s *store) SuppliersByOrder(ctx context.Context, orderID, orderDetailID string) ([]*domain.SupplierTimeline, error) {
	return s.suppliers.Find(ctx, &domain.SupplierTimeline{OrderID: orderID, OrderDetailID: orderDetailID},
		option.WithOrder("order_detail_id ASC", "supplier_id ASC", "supplier_reference ASC", "timeline_version ASC", "ingested_at ASC", "id ASC"),
	)
}

func (s *store) RefundTimeline(ctx context.Context, refundID string) ([]*domain.RefundTimeline, error) {
	return s.refunds.Find(ctx, &domain.RefundTimeline{RefundID: refundID},
		option.WithOrder("timeline_version ASC", "ingested_at ASC", "id ASC"),
	)
}

func (s *store) ListOrders(ctx context.Context, req domain.ListOrdersRequest) (*domain.ListOrdersResponse, error) {
	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	if size > 250 {
		size = 250
	}

	stmt := s.db.WithContext(ctx).Model(&domain.PricingComponent{}).
		Select("order_id, MAX(version) AS latest_version, COUNT(*) AS row_count").
		Group("order_id").
		Order("order_id ASC").
		Limit(size + 1)
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, fmt.Errorf("%w: page_token", domain.ErrInvalidScope)
		}
		stmt = stmt.Where("order_id > ?", cursor.ID)
	}

	var rows []*domain.OrderSummary
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, int32(size), func(o *domain.OrderSummary) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: o.OrderID})
		if err != nil {
			return ""
		}
		return token
	})
	if len(rows) > size {
		rows = rows[:size]
	}

	out := &domain.ListOrdersResponse{Orders: make([]domain.OrderSummary, 0, len(rows))}
	for _, r := range rows {
		out.Orders = append(out.Orders, *r)
	}
	if pageInfo != nil {
		out.PageInfo = *pageInfo
	}
	return out, nil
}
