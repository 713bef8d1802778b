package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/pricingread/pkg/db/pagination"
)

var (
	ErrInvalidScope   = errors.New("invalid_scope")
	ErrEmptyAppend    = errors.New("empty_append")
	ErrVersionTimeout = errors.New("version_lock_timeout")
)

// SupplierKey identifies one supplier instance. A rebooking produces a new key.
type SupplierKey struct {
	OrderID           string `json:"order_id"`
	OrderDetailID     string `json:"order_detail_id"`
	SupplierID        string `json:"supplier_id"`
	SupplierReference string `json:"supplier_reference"`
}

func (k SupplierKey) String() string {
	return k.OrderID + "/" + k.OrderDetailID + "/" + k.SupplierID + "/" + k.SupplierReference
}

// Builders receive the highest version already stored for their scope (0 when none)
// and return the rows to insert. They run inside the per-scope critical section.
// PricingBuilder is the exception: it receives the version the store assigned.
type (
	PricingBuilder  func(version int64) ([]*PricingComponent, error)
	PaymentBuilder  func(current int64) (*PaymentTimeline, error)
	SupplierBuilder func(current int64) (*SupplierTimeline, error)
	RefundBuilder   func(current int64) (*RefundTimeline, error)
)

type OrderSummary struct {
	OrderID       string `json:"order_id"`
	LatestVersion int64  `json:"latest_version"`
	RowCount      int64  `json:"row_count"`
}

type ListOrdersRequest struct {
	pagination.Pagination
}

type ListOrdersResponse struct {
	Orders   []OrderSummary      `json:"orders"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// Store is the append-only fact store. Appends are all-or-nothing per call.
type Store interface {
	// AppendPricing stamps every row with one order version. A requested version is used
	// only when no row of the order holds it yet; otherwise the next free max+1 applies.
	AppendPricing(ctx context.Context, orderID string, requested *int64, build PricingBuilder) ([]*PricingComponent, error)
	AppendPayment(ctx context.Context, orderID string, build PaymentBuilder) (*PaymentTimeline, error)
	AppendSupplier(ctx context.Context, key SupplierKey, build SupplierBuilder) (*SupplierTimeline, error)
	AppendRefund(ctx context.Context, refundID string, build RefundBuilder) (*RefundTimeline, error)

	PricingByOrder(ctx context.Context, orderID string) ([]*PricingComponent, error)
	PricingBySemanticID(ctx context.Context, semanticID string) ([]*PricingComponent, error)
	RefundsOf(ctx context.Context, semanticID string) ([]*PricingComponent, error)
	PaymentsByOrder(ctx context.Context, orderID string) ([]*PaymentTimeline, error)
	SuppliersByOrder(ctx context.Context, orderID, orderDetailID string) ([]*SupplierTimeline, error)
	RefundTimeline(ctx context.Context, refundID string) ([]*RefundTimeline, error)
	ListOrders(ctx context.Context, req ListOrdersRequest) (*ListOrdersResponse, error)
}
