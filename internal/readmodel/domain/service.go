// Package domain describes the read side: latest views and histories derived from the fact tables.
package domain

import (
	"context"
	"errors"
	"time"

	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	"github.com/smallbiznis/pricingread/internal/obligation"
)

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidOrderID    = errors.New("invalid_order_id")
	ErrInvalidSemanticID = errors.New("invalid_semantic_id")
	ErrInvalidRefundID   = errors.New("invalid_refund_id")
)

type Service interface {
	ListOrders(ctx context.Context, req factdomain.ListOrdersRequest) (*factdomain.ListOrdersResponse, error)

	LatestBreakdown(ctx context.Context, orderID string) (*Breakdown, error)
	History(ctx context.Context, orderID string) (*History, error)
	Lineage(ctx context.Context, semanticID string) (*Lineage, error)
	NetAmount(ctx context.Context, semanticID string) (*NetAmount, error)

	LatestPayment(ctx context.Context, orderID string) (*factdomain.PaymentTimeline, error)
	PaymentTimeline(ctx context.Context, orderID string) ([]*factdomain.PaymentTimeline, error)
	LatestSuppliers(ctx context.Context, orderID, orderDetailID string) ([]*factdomain.SupplierTimeline, error)
	SupplierTimeline(ctx context.Context, orderID, orderDetailID string) ([]*factdomain.SupplierTimeline, error)
	LatestRefund(ctx context.Context, refundID string) (*factdomain.RefundTimeline, error)
	RefundTimeline(ctx context.Context, refundID string) ([]*factdomain.RefundTimeline, error)

	Obligations(ctx context.Context, orderID string) (*obligation.Report, error)
}

type CurrencyTotal struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Breakdown holds the newest row of every semantic component of an order. Components
// introduced at different versions coexist.
type Breakdown struct {
	OrderID       string                         `json:"order_id"`
	LatestVersion int64                          `json:"latest_version"`
	Components    []*factdomain.PricingComponent `json:"components"`
	Totals        []CurrencyTotal                `json:"totals"`
}

type VersionSnapshot struct {
	Version        int64                          `json:"version"`
	SnapshotIDs    []string                       `json:"pricing_snapshot_ids"`
	ComponentCount int                            `json:"component_count"`
	Totals         []CurrencyTotal                `json:"totals"`
	EmittedAt      time.Time                      `json:"emitted_at"`
	Components     []*factdomain.PricingComponent `json:"components"`
}

type History struct {
	OrderID  string            `json:"order_id"`
	Versions []VersionSnapshot `json:"versions"`
}

// Lineage is every occurrence of a semantic component plus the rows that reverse it.
type Lineage struct {
	SemanticID string                         `json:"semantic_id"`
	OrderID    string                         `json:"order_id"`
	Rows       []*factdomain.PricingComponent `json:"rows"`
	Refunds    []*factdomain.PricingComponent `json:"refunds"`
}

type NetAmount struct {
	SemanticID string `json:"semantic_id"`
	Currency   string `json:"currency"`
	Charge     int64  `json:"charge"`
	Refunded   int64  `json:"refunded"`
	Net        int64  `json:"net"`
}
