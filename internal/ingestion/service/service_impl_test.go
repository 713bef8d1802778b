package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricingread/internal/clock"
	"github.com/smallbiznis/pricingread/internal/config"
	deadletterdomain "github.com/smallbiznis/pricingread/internal/deadletter/domain"
	deadletterservice "github.com/smallbiznis/pricingread/internal/deadletter/service"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	factrepo "github.com/smallbiznis/pricingread/internal/factstore/repository"
	ingestiondomain "github.com/smallbiznis/pricingread/internal/ingestion/domain"
	"github.com/smallbiznis/pricingread/internal/keylock"
	"github.com/smallbiznis/pricingread/internal/normalize"
	"github.com/smallbiznis/pricingread/internal/observability/metrics"
	"github.com/smallbiznis/pricingread/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type stack struct {
	svc        ingestiondomain.Service
	store      factdomain.Store
	deadLetter deadletterdomain.Service
}

func newStack(t *testing.T) stack {
	t.Helper()
	models := append(factdomain.Models(), &deadletterdomain.DeadLetter{})
	conn := dbtest.Open(t, models...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := config.NewStaticIngestConfigHolder(config.DefaultIngestConfig())
	clk := clock.NewSteppingClock(t0, time.Second)
	store := factrepo.NewStore(factrepo.Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Locker: keylock.NewLocal(),
		Ingest: holder,
	})
	dlq := deadletterservice.NewService(deadletterservice.ServiceParam{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Ingest: holder,
	})
	return stack{
		svc:        newService(store, dlq, holder, clk),
		store:      store,
		deadLetter: dlq,
	}
}

func newService(store factdomain.Store, dlq deadletterdomain.Service, holder *config.IngestConfigHolder, clk clock.Clock) ingestiondomain.Service {
	return NewService(ServiceParam{
		Log: zap.NewNop(),
		Normalizer: normalize.New(normalize.Params{
			Store:  store,
			Log:    zap.NewNop(),
			Clock:  clk,
			Ingest: holder,
		}),
		DeadLetter: dlq,
		Metrics:    metrics.NewNoop(),
	})
}

const pricing = `{"event_id":"evt-1","event_type":"PricingUpdated","order_id":"ORD-1","emitted_at":"2025-03-01T10:00:00Z",
  "components":[
    {"component_type":"BaseFare","amount":100000,"currency":"IDR","dimensions":{"pax_id":"P1","order_detail_id":"OD-1"}},
    {"component_type":"Tax","amount":11000,"currency":"IDR","dimensions":{"order_detail_id":"OD-1"}}]}`

func refundIssued(refundOf string, amount int64, dims string) string {
	return fmt.Sprintf(`{"event_type":"RefundIssued","order_id":"ORD-1","refund_id":"RF-1","emitted_at":"2025-03-02T10:00:00Z",
  "components":[{"component_type":"BaseFare","amount":%d,"currency":"IDR","dimensions":%s,"refund_of_component_semantic_id":%q}]}`,
		amount, dims, refundOf)
}

func ingest(t *testing.T, s stack, raw string) *ingestiondomain.Result {
	t.Helper()
	result, err := s.svc.Ingest(context.Background(), []byte(raw))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func deadLetters(t *testing.T, s stack) []deadletterdomain.Entry {
	t.Helper()
	page, err := s.deadLetter.List(context.Background(), deadletterdomain.ListRequest{})
	require.NoError(t, err)
	return page.Entries
}

func TestIngestPricing(t *testing.T) {
	s := newStack(t)

	result := ingest(t, s, pricing)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, ingestiondomain.DispositionStored, result.Disposition())
	assert.Equal(t, 2, result.Details["rows_written"])
	assert.EqualValues(t, 1, result.Details["version"])
	assert.Equal(t, []string{"cs-ORD-1-OD-OD-1-P-P1-BaseFare", "cs-ORD-1-OD-OD-1-Tax"}, result.Details["semantic_ids"])
	assert.Len(t, result.Details["instance_ids"], 2)
	assert.Empty(t, deadLetters(t, s))
}

func TestIngestDuplicateSubmissionStoresTwice(t *testing.T) {
	s := newStack(t)

	first := ingest(t, s, pricing)
	second := ingest(t, s, pricing)
	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.EqualValues(t, 1, first.Details["version"])
	assert.EqualValues(t, 2, second.Details["version"])
	assert.NotEqual(t, first.Details["pricing_snapshot_id"], second.Details["pricing_snapshot_id"])

	rows, err := s.store.PricingByOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestIngestDuplicateVersionedSubmissionStoresTwice(t *testing.T) {
	s := newStack(t)
	versioned := `{"event_id":"evt-9","event_type":"PricingUpdated","order_id":"ORD-1","emitted_at":"2025-03-01T10:00:00Z","version":3,
  "components":[{"component_type":"BaseFare","amount":100000,"currency":"IDR","dimensions":{"order_detail_id":"OD-1"}}]}`

	first := ingest(t, s, versioned)
	second := ingest(t, s, versioned)
	require.True(t, first.Success, first.Message)
	require.True(t, second.Success, second.Message)
	assert.EqualValues(t, 3, first.Details["version"])
	assert.EqualValues(t, 4, second.Details["version"])

	rows, err := s.store.PricingByOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestIngestMalformedThenCorrected(t *testing.T) {
	s := newStack(t)

	broken := `{"event_id":"evt-2","event_type":"PricingUpdated","order_id":"ORD-1","emitted_at":"2025-03-01T10:00:00Z",
  "components":[{"component_type":"BaseFare","currency":"IDR"}]}`
	result := ingest(t, s, broken)
	assert.False(t, result.Success)
	assert.Equal(t, ingestiondomain.DispositionDeadLettered, result.Disposition())
	assert.Equal(t, "schema_violation", result.Details["error_type"])
	assert.Equal(t, "evt-2", result.Details["event_id"])
	assert.NotEmpty(t, result.Details["dlq_id"])

	rows, err := s.store.PricingByOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	entries := deadLetters(t, s)
	require.Len(t, entries, 1)
	assert.Equal(t, broken, entries[0].RawEvent)
	assert.Equal(t, "components[0].amount", entries[0].Violations[0].Field)

	result = ingest(t, s, pricing)
	assert.True(t, result.Success)
}

func TestIngestRejectsUnroutablePayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind string
	}{
		{name: "not json", raw: `not json`, kind: "malformed_payload"},
		{name: "no event type", raw: `{"order_id":"ORD-1"}`, kind: "missing_event_type"},
		{name: "unknown event type", raw: `{"event_type":"order.teleported","order_id":"ORD-1"}`, kind: "unknown_event_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStack(t)
			result := ingest(t, s, tt.raw)
			assert.False(t, result.Success)
			assert.Equal(t, tt.kind, result.Details["error_type"])
			assert.Equal(t, "schema_violation", result.Details["error_class"])
			assert.Equal(t, deadletterdomain.UnknownEventID, result.Details["event_id"])
		})
	}
}

func TestIngestRefundBusinessRules(t *testing.T) {
	s := newStack(t)
	require.True(t, ingest(t, s, pricing).Success)
	original := "cs-ORD-1-OD-OD-1-P-P1-BaseFare"

	result := ingest(t, s, refundIssued(original, -100000, `{"order_detail_id":"OD-1"}`))
	assert.False(t, result.Success)
	assert.Equal(t, "granularity_mismatch", result.Details["error_type"])
	assert.Equal(t, "business_rule_violation", result.Details["error_class"])

	result = ingest(t, s, refundIssued(original, 100000, `{"order_detail_id":"OD-1","pax_id":"P1"}`))
	assert.False(t, result.Success)
	assert.Equal(t, "invalid_amount_sign", result.Details["error_type"])

	result = ingest(t, s, refundIssued("cs-ORD-1-ORDER-BaseFare", -1, `{}`))
	assert.False(t, result.Success)
	assert.Equal(t, "missing_original_component", result.Details["error_type"])

	rows, err := s.store.PricingByOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Len(t, deadLetters(t, s), 3)

	result = ingest(t, s, refundIssued(original, -100000, `{"order_detail_id":"OD-1","pax_id":"P1"}`))
	require.True(t, result.Success, result.Message)
	assert.Equal(t, []string{"cs-ORD-1-RF-1-OD-OD-1-P-P1-BaseFare"}, result.Details["semantic_ids"])
}

func TestIngestTimelineFamilies(t *testing.T) {
	s := newStack(t)

	legacy := `{"event_type":"payment.captured","order_id":"ORD-1","emitted_at":"2025-03-01T10:00:00Z","payment_method":"VA","amount":150000,"currency":"IDR"}`
	nested := `{"event_type":"PaymentLifecycle","order_id":"ORD-1","emitted_at":"2025-03-01T11:00:00Z",
  "payment":{"status":"Settled","payment_method":{"channel":"VA","provider":"Xendit"},"currency":"IDR","captured_amount":150000}}`

	result := ingest(t, s, legacy)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Captured", result.Details["status"])
	assert.Equal(t, "legacy", result.Details["payload_shape"])
	assert.EqualValues(t, 1, result.Details["timeline_version"])

	result = ingest(t, s, nested)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Settled", result.Details["status"])
	assert.EqualValues(t, 2, result.Details["timeline_version"])

	supplier := `{"event_type":"supplier.order.confirmed","order_id":"ORD-1","order_detail_id":"OD-1","emitted_at":"2025-03-01T10:00:00Z",
  "supplier_id":"HOTEL-1","supplier_reference_id":"REF-A","amount":240000,"currency":"IDR"}`
	result = ingest(t, s, supplier)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Confirmed", result.Details["status"])
	assert.Equal(t, "REF-A", result.Details["supplier_reference"])

	refund := `{"event_type":"refund.initiated","order_id":"ORD-1","refund_id":"RF-1","refund_amount":5000,"currency":"IDR","emitted_at":"2025-03-01T10:00:00Z"}`
	result = ingest(t, s, refund)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Initiated", result.Details["status"])
	assert.Equal(t, "RF-1", result.Details["refund_id"])
}

type storeMock struct {
	mock.Mock
	factdomain.Store
}

func (m *storeMock) AppendPayment(ctx context.Context, orderID string, build factdomain.PaymentBuilder) (*factdomain.PaymentTimeline, error) {
	args := m.Called(ctx, orderID)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*factdomain.PaymentTimeline), args.Error(1)
}

type deadLetterMock struct {
	mock.Mock
	deadletterdomain.Service
}

func (m *deadLetterMock) Record(ctx context.Context, req deadletterdomain.RecordRequest) (*deadletterdomain.Entry, error) {
	args := m.Called(ctx, req)
	return nil, args.Error(1)
}

func TestIngestSurfacesStorageFailure(t *testing.T) {
	store := &storeMock{}
	dlq := &deadLetterMock{}
	boom := errors.New("disk full")
	store.On("AppendPayment", mock.Anything, "ORD-1").Return(nil, boom)

	svc := newService(store, dlq, config.NewStaticIngestConfigHolder(config.DefaultIngestConfig()), clock.NewFakeClock(t0))
	raw := `{"event_type":"payment.captured","order_id":"ORD-1","emitted_at":"2025-03-01T10:00:00Z","amount":1,"currency":"IDR"}`
	result, err := svc.Ingest(context.Background(), []byte(raw))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
	store.AssertExpectations(t)
	dlq.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}
