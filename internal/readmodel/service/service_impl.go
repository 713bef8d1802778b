package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	"github.com/smallbiznis/pricingread/internal/obligation"
	readdomain "github.com/smallbiznis/pricingread/internal/readmodel/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Store factdomain.Store
	Log   *zap.Logger
}

type Service struct {
	store factdomain.Store
	log   *zap.Logger
}

func NewService(p ServiceParam) readdomain.Service {
	return &Service{
		store: p.Store,
		log:   p.Log.Named("readmodel.service"),
	}
}

func (s *Service) ListOrders(ctx context.Context, req factdomain.ListOrdersRequest) (*factdomain.ListOrdersResponse, error) {
	return s.store.ListOrders(ctx, req)
}

func (s *Service) LatestBreakdown(ctx context.Context, orderID string) (*readdomain.Breakdown, error) {
	rows, err := s.pricingByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	out := &readdomain.Breakdown{OrderID: orderID, Components: latestPerSemanticID(rows)}
	for _, row := range rows {
		if row.Version > out.LatestVersion {
			out.LatestVersion = row.Version
		}
	}
	out.Totals = totals(out.Components)
	return out, nil
}

func (s *Service) History(ctx context.Context, orderID string) (*readdomain.History, error) {
	rows, err := s.pricingByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// rows arrive in version order
	out := &readdomain.History{OrderID: orderID, Versions: []readdomain.VersionSnapshot{}}
	var current *readdomain.VersionSnapshot
	for _, row := range rows {
		if current == nil || current.Version != row.Version {
			out.Versions = append(out.Versions, readdomain.VersionSnapshot{Version: row.Version, EmittedAt: row.EmittedAt})
			current = &out.Versions[len(out.Versions)-1]
		}
		if !contains(current.SnapshotIDs, row.PricingSnapshotID) {
			current.SnapshotIDs = append(current.SnapshotIDs, row.PricingSnapshotID)
		}
		if row.EmittedAt.After(current.EmittedAt) {
			current.EmittedAt = row.EmittedAt
		}
		current.Components = append(current.Components, row)
		current.ComponentCount++
	}
	for i := range out.Versions {
		out.Versions[i].Totals = totals(out.Versions[i].Components)
	}
	return out, nil
}

func (s *Service) Lineage(ctx context.Context, semanticID string) (*readdomain.Lineage, error) {
	rows, err := s.pricingBySemanticID(ctx, semanticID)
	if err != nil {
		return nil, err
	}
	refunds, err := s.store.RefundsOf(ctx, semanticID)
	if err != nil {
		return nil, err
	}
	return &readdomain.Lineage{
		SemanticID: semanticID,
		OrderID:    rows[0].OrderID,
		Rows:       rows,
		Refunds:    refunds,
	}, nil
}

// NetAmount nets the current charge against every reversal that references it. A
// repriced charge counts once, at its newest amount.
func (s *Service) NetAmount(ctx context.Context, semanticID string) (*readdomain.NetAmount, error) {
	rows, err := s.pricingBySemanticID(ctx, semanticID)
	if err != nil {
		return nil, err
	}
	refunds, err := s.store.RefundsOf(ctx, semanticID)
	if err != nil {
		return nil, err
	}

	charge := latestPerSemanticID(rows)[0]
	out := &readdomain.NetAmount{
		SemanticID: semanticID,
		Currency:   charge.Currency,
		Charge:     charge.Amount,
	}
	for _, refund := range latestPerSemanticID(refunds) {
		out.Refunded += refund.Amount
	}
	out.Net = out.Charge + out.Refunded
	return out, nil
}

func (s *Service) LatestPayment(ctx context.Context, orderID string) (*factdomain.PaymentTimeline, error) {
	rows, err := s.PaymentTimeline(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return latest(rows, func(r *factdomain.PaymentTimeline) rank {
		return rank{r.TimelineVersion, r.IngestedAt, r.ID}
	}), nil
}

func (s *Service) PaymentTimeline(ctx context.Context, orderID string) ([]*factdomain.PaymentTimeline, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, readdomain.ErrInvalidOrderID
	}
	rows, err := s.store.PaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, readdomain.ErrNotFound
	}
	return rows, nil
}

func (s *Service) LatestSuppliers(ctx context.Context, orderID, orderDetailID string) ([]*factdomain.SupplierTimeline, error) {
	rows, err := s.SupplierTimeline(ctx, orderID, orderDetailID)
	if err != nil {
		return nil, err
	}
	return obligation.Latest(rows), nil
}

func (s *Service) SupplierTimeline(ctx context.Context, orderID, orderDetailID string) ([]*factdomain.SupplierTimeline, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, readdomain.ErrInvalidOrderID
	}
	rows, err := s.store.SuppliersByOrder(ctx, orderID, strings.TrimSpace(orderDetailID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, readdomain.ErrNotFound
	}
	return rows, nil
}

func (s *Service) LatestRefund(ctx context.Context, refundID string) (*factdomain.RefundTimeline, error) {
	rows, err := s.RefundTimeline(ctx, refundID)
	if err != nil {
		return nil, err
	}
	return latest(rows, func(r *factdomain.RefundTimeline) rank {
		return rank{r.TimelineVersion, r.IngestedAt, r.ID}
	}), nil
}

func (s *Service) RefundTimeline(ctx context.Context, refundID string) ([]*factdomain.RefundTimeline, error) {
	refundID = strings.TrimSpace(refundID)
	if refundID == "" {
		return nil, readdomain.ErrInvalidRefundID
	}
	rows, err := s.store.RefundTimeline(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, readdomain.ErrNotFound
	}
	return rows, nil
}

func (s *Service) Obligations(ctx context.Context, orderID string) (*obligation.Report, error) {
	rows, err := s.SupplierTimeline(ctx, orderID, "")
	if err != nil {
		return nil, err
	}
	report := obligation.Resolve(orderID, rows)
	s.log.Debug("obligations resolved",
		zap.String("order_id", orderID),
		zap.Int("instances", len(report.Instances)),
	)
	return report, nil
}

func (s *Service) pricingByOrder(ctx context.Context, orderID string) ([]*factdomain.PricingComponent, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, readdomain.ErrInvalidOrderID
	}
	rows, err := s.store.PricingByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, readdomain.ErrNotFound
	}
	return rows, nil
}

func (s *Service) pricingBySemanticID(ctx context.Context, semanticID string) ([]*factdomain.PricingComponent, error) {
	semanticID = strings.TrimSpace(semanticID)
	if semanticID == "" {
		return nil, readdomain.ErrInvalidSemanticID
	}
	rows, err := s.store.PricingBySemanticID(ctx, semanticID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, readdomain.ErrNotFound
	}
	return rows, nil
}

// rank orders rows of one scope: version, then ingestion time, then row id.
type rank struct {
	version    int64
	ingestedAt time.Time
	id         snowflake.ID
}

func (a rank) after(b rank) bool {
	if a.version != b.version {
		return a.version > b.version
	}
	if !a.ingestedAt.Equal(b.ingestedAt) {
		return a.ingestedAt.After(b.ingestedAt)
	}
	return a.id > b.id
}

func latest[T any](rows []*T, rankOf func(*T) rank) *T {
	var best *T
	for _, row := range rows {
		if best == nil || rankOf(row).after(rankOf(best)) {
			best = row
		}
	}
	return best
}

func pricingRank(r *factdomain.PricingComponent) rank {
	return rank{r.Version, r.IngestedAt, r.ID}
}

func latestPerSemanticID(rows []*factdomain.PricingComponent) []*factdomain.PricingComponent {
	bySemantic := map[string]*factdomain.PricingComponent{}
	for _, row := range rows {
		cur, ok := bySemantic[row.SemanticID]
		if !ok || pricingRank(row).after(pricingRank(cur)) {
			bySemantic[row.SemanticID] = row
		}
	}

	out := make([]*factdomain.PricingComponent, 0, len(bySemantic))
	for _, row := range bySemantic {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version < out[j].Version
		}
		return out[i].SemanticID < out[j].SemanticID
	})
	return out
}

func totals(rows []*factdomain.PricingComponent) []readdomain.CurrencyTotal {
	var out []readdomain.CurrencyTotal
	index := map[string]int{}
	for _, row := range rows {
		i, ok := index[row.Currency]
		if !ok {
			index[row.Currency] = len(out)
			out = append(out, readdomain.CurrencyTotal{Currency: row.Currency})
			i = len(out) - 1
		}
		out[i].Amount += row.Amount
	}
	return out
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
