package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricingread/internal/clock"
	"github.com/smallbiznis/pricingread/internal/config"
	"github.com/smallbiznis/pricingread/internal/contract"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	factrepo "github.com/smallbiznis/pricingread/internal/factstore/repository"
	"github.com/smallbiznis/pricingread/internal/keylock"
	"github.com/smallbiznis/pricingread/internal/normalize"
	readdomain "github.com/smallbiznis/pricingread/internal/readmodel/domain"
	"github.com/smallbiznis/pricingread/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc        readdomain.Service
	normalizer *normalize.Normalizer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t, factdomain.Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := config.NewStaticIngestConfigHolder(config.DefaultIngestConfig())
	store := factrepo.NewStore(factrepo.Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Locker: keylock.NewLocal(),
		Ingest: holder,
	})
	return fixture{
		svc: NewService(ServiceParam{Store: store, Log: zap.NewNop()}),
		normalizer: normalize.New(normalize.Params{
			Store:  store,
			Log:    zap.NewNop(),
			Clock:  clock.NewSteppingClock(t0, time.Second),
			Ingest: holder,
		}),
	}
}

func int64p(v int64) *int64 { return &v }

func line(componentType string, detail string, amount int64) contract.ComponentLine {
	return contract.ComponentLine{
		ComponentType: componentType,
		Amount:        amount,
		Currency:      "IDR",
		Dimensions:    map[string]string{"order_detail_id": detail},
	}
}

func (f fixture) price(t *testing.T, orderID string, version int64, lines ...contract.ComponentLine) []*factdomain.PricingComponent {
	t.Helper()
	rows, err := f.normalizer.Pricing(context.Background(), &contract.ComponentEvent{
		EventType:  contract.EventPricingUpdated,
		OrderID:    orderID,
		Version:    int64p(version),
		EmittedAt:  t0.Add(time.Duration(version) * time.Minute),
		Components: lines,
	})
	require.NoError(t, err)
	return rows
}

func TestLatestBreakdownKeepsUntouchedComponents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.price(t, "ORD-1", 1, line(contract.ComponentBaseFare, "OD-1", 100000), line(contract.ComponentTax, "OD-1", 11000))
	f.price(t, "ORD-1", 3, line(contract.ComponentBaseFare, "OD-1", 90000))
	f.price(t, "ORD-1", 2, line(contract.ComponentBaseFare, "OD-1", 95000), line(contract.ComponentFee, "OD-1", 5000))

	breakdown, err := f.svc.LatestBreakdown(ctx, "ORD-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, breakdown.LatestVersion)
	require.Len(t, breakdown.Components, 3)

	byType := map[string]*factdomain.PricingComponent{}
	for _, c := range breakdown.Components {
		byType[c.ComponentType] = c
	}
	assert.EqualValues(t, 90000, byType[contract.ComponentBaseFare].Amount)
	assert.EqualValues(t, 3, byType[contract.ComponentBaseFare].Version)
	assert.EqualValues(t, 1, byType[contract.ComponentTax].Version)
	assert.EqualValues(t, 2, byType[contract.ComponentFee].Version)
	assert.Equal(t, []readdomain.CurrencyTotal{{Currency: "IDR", Amount: 106000}}, breakdown.Totals)

	history, err := f.svc.History(ctx, "ORD-1")
	require.NoError(t, err)
	require.Len(t, history.Versions, 3)
	assert.EqualValues(t, 1, history.Versions[0].Version)
	assert.Equal(t, 2, history.Versions[0].ComponentCount)
	assert.EqualValues(t, 111000, history.Versions[0].Totals[0].Amount)
	assert.Len(t, history.Versions[0].SnapshotIDs, 1)
	assert.EqualValues(t, 2, history.Versions[1].Version)
	assert.EqualValues(t, 3, history.Versions[2].Version)
}

func TestNetAmountOfFullyRefundedCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	charge := f.price(t, "ORD-1", 1, line(contract.ComponentBaseFare, "OD-1", 100000))[0]

	refund := line(contract.ComponentBaseFare, "OD-1", -100000)
	refund.RefundOf = charge.SemanticID
	_, err := f.normalizer.RefundIssued(ctx, &contract.ComponentEvent{
		EventType:  contract.EventRefundIssued,
		OrderID:    "ORD-1",
		RefundID:   "RF-1",
		EmittedAt:  t0,
		Components: []contract.ComponentLine{refund},
	})
	require.NoError(t, err)

	net, err := f.svc.NetAmount(ctx, charge.SemanticID)
	require.NoError(t, err)
	assert.EqualValues(t, 100000, net.Charge)
	assert.EqualValues(t, -100000, net.Refunded)
	assert.EqualValues(t, 0, net.Net)

	lineage, err := f.svc.Lineage(ctx, charge.SemanticID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", lineage.OrderID)
	assert.Len(t, lineage.Rows, 1)
	require.Len(t, lineage.Refunds, 1)
	assert.Equal(t, charge.SemanticID, *lineage.Refunds[0].RefundOfSemanticID)
}

func TestNetAmountCountsRepricedChargeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.price(t, "ORD-1", 1, line(contract.ComponentBaseFare, "OD-1", 100000))
	charge := f.price(t, "ORD-1", 2, line(contract.ComponentBaseFare, "OD-1", 120000))[0]

	net, err := f.svc.NetAmount(ctx, charge.SemanticID)
	require.NoError(t, err)
	assert.EqualValues(t, 120000, net.Net)
}

func TestObligationsForRebookedSupplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	supplier := func(ref, status string, due int64) {
		_, err := f.normalizer.Supplier(ctx, &contract.SupplierEvent{
			Shape:             contract.ShapeNested,
			EventType:         contract.EventSupplierLifecycle,
			OrderID:           "ORD-1",
			OrderDetailID:     "OD-1",
			EmittedAt:         t0,
			SupplierID:        "HOTEL-1",
			SupplierReference: ref,
			Status:            status,
			AmountDue:         int64p(due),
			Currency:          "IDR",
		})
		require.NoError(t, err)
	}
	supplier("REF-A", contract.SupplierConfirmed, 240000)
	supplier("REF-A", contract.SupplierCancelledNoFee, 240000)
	supplier("REF-B", contract.SupplierConfirmed, 250000)

	report, err := f.svc.Obligations(ctx, "ORD-1")
	require.NoError(t, err)
	assert.EqualValues(t, 250000, report.DetailPayable("OD-1", "IDR"))

	latest, err := f.svc.LatestSuppliers(ctx, "ORD-1", "OD-1")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, contract.SupplierCancelledNoFee, latest[0].Status)

	timeline, err := f.svc.SupplierTimeline(ctx, "ORD-1", "")
	require.NoError(t, err)
	assert.Len(t, timeline, 3)
}

func TestLatestTimelines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, status := range []string{contract.PaymentAuthorized, contract.PaymentCaptured} {
		_, err := f.normalizer.Payment(ctx, &contract.PaymentEvent{
			Shape:     contract.ShapeNested,
			EventType: contract.EventPaymentLifecycle,
			OrderID:   "ORD-1",
			EmittedAt: t0,
			Status:    status,
			Currency:  "IDR",
		})
		require.NoError(t, err)
	}
	payment, err := f.svc.LatestPayment(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, contract.PaymentCaptured, payment.Status)
	assert.EqualValues(t, 2, payment.TimelineVersion)

	for _, status := range []string{contract.RefundInitiated, contract.RefundIssued, contract.RefundClosed} {
		_, err := f.normalizer.RefundTimeline(ctx, &contract.RefundTimelineEvent{
			EventType: contract.EventRefundLifecycle,
			OrderID:   "ORD-1",
			RefundID:  "RF-1",
			EmittedAt: t0,
			Status:    status,
			Amount:    5000,
			Currency:  "IDR",
		})
		require.NoError(t, err)
	}
	refund, err := f.svc.LatestRefund(ctx, "RF-1")
	require.NoError(t, err)
	assert.Equal(t, contract.RefundClosed, refund.Status)
}

func TestNotFoundAndInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.LatestBreakdown(ctx, "ORD-404")
	assert.ErrorIs(t, err, readdomain.ErrNotFound)
	_, err = f.svc.LatestBreakdown(ctx, " ")
	assert.ErrorIs(t, err, readdomain.ErrInvalidOrderID)
	_, err = f.svc.NetAmount(ctx, "")
	assert.ErrorIs(t, err, readdomain.ErrInvalidSemanticID)
	_, err = f.svc.Obligations(ctx, "ORD-404")
	assert.ErrorIs(t, err, readdomain.ErrNotFound)
	_, err = f.svc.LatestRefund(ctx, "")
	assert.ErrorIs(t, err, readdomain.ErrInvalidRefundID)
}
