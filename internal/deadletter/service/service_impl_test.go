package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricingread/internal/clock"
	"github.com/smallbiznis/pricingread/internal/config"
	"github.com/smallbiznis/pricingread/internal/contract"
	deadletterdomain "github.com/smallbiznis/pricingread/internal/deadletter/domain"
	"github.com/smallbiznis/pricingread/pkg/db/dbtest"
	"github.com/smallbiznis/pricingread/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, threshold int) (deadletterdomain.Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t, &deadletterdomain.DeadLetter{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.DefaultIngestConfig()
	cfg.DeadLetterCompressThreshold = threshold
	svc := NewService(ServiceParam{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewSteppingClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), time.Second),
		Ingest: config.NewStaticIngestConfigHolder(cfg),
	})
	return svc, conn
}

func TestRecordKeepsPayloadAndClassification(t *testing.T) {
	svc, _ := newTestService(t, 4096)
	ctx := context.Background()

	raw := []byte(`{"event_type":"PricingUpdated","order_id":"ORD-1"}`)
	entry, err := svc.Record(ctx, deadletterdomain.RecordRequest{
		Raw:      raw,
		Envelope: contract.Peek(raw),
		Rejection: contract.SchemaRejection(contract.KindSchemaViolation, "components: is required",
			contract.Violation{Field: "components", Code: "required", Message: "is required"}),
	})
	require.NoError(t, err)

	assert.Equal(t, deadletterdomain.UnknownEventID, entry.EventID)
	assert.Equal(t, "PricingUpdated", entry.EventType)
	assert.Equal(t, "ORD-1", entry.OrderID)
	assert.Equal(t, string(raw), entry.RawEvent)
	assert.Equal(t, "schema_violation", entry.ErrorClass)
	assert.Equal(t, "schema_violation", entry.ErrorKind)
	require.Len(t, entry.Violations, 1)
	assert.Equal(t, "components", entry.Violations[0].Field)

	got, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.RawEvent, got.RawEvent)
}

func TestRecordCompressesLargePayloads(t *testing.T) {
	svc, conn := newTestService(t, 64)
	ctx := context.Background()

	raw := []byte(`{"event_type":"PricingUpdated","padding":"` + strings.Repeat("x", 512) + `"}`)
	entry, err := svc.Record(ctx, deadletterdomain.RecordRequest{
		Raw:       raw,
		Envelope:  contract.Peek(raw),
		Rejection: contract.SchemaRejection(contract.KindMalformedPayload, "bad"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(raw), entry.RawEvent)

	var row deadletterdomain.DeadLetter
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, deadletterdomain.EncodingSnappy, row.Encoding)
	assert.Equal(t, len(raw), row.RawSize)
	assert.Less(t, len(row.RawEvent), len(raw))
}

func TestRecordKeepsNonJSONPayload(t *testing.T) {
	svc, _ := newTestService(t, 4096)

	raw := []byte(`{"event_type": `)
	entry, err := svc.Record(context.Background(), deadletterdomain.RecordRequest{
		Raw:       raw,
		Envelope:  contract.Peek(raw),
		Rejection: contract.SchemaRejection(contract.KindMalformedPayload, "unexpected end of JSON input"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(raw), entry.RawEvent)
	assert.Equal(t, "malformed_payload", entry.ErrorKind)
}

func TestListNewestFirstWithPagination(t *testing.T) {
	svc, _ := newTestService(t, 4096)
	ctx := context.Background()

	kinds := []contract.ErrorKind{
		contract.KindMissingEventType,
		contract.KindGranularityMismatch,
		contract.KindInvalidAmountSign,
	}
	for i, kind := range kinds {
		raw := []byte(`{"event_id":"evt-` + string(rune('a'+i)) + `"}`)
		_, err := svc.Record(ctx, deadletterdomain.RecordRequest{
			Raw:       raw,
			Envelope:  contract.Peek(raw),
			Rejection: &contract.Rejection{Class: contract.ClassBusinessRuleViolation, Kind: kind, Detail: "x"},
		})
		require.NoError(t, err)
	}

	req := deadletterdomain.ListRequest{}
	req.PageSize = 2
	page, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "evt-c", page.Entries[0].EventID)
	assert.Equal(t, "evt-b", page.Entries[1].EventID)
	require.True(t, page.PageInfo.HasMore)

	req.PageToken = page.PageInfo.NextPageToken
	page, err = svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "evt-a", page.Entries[0].EventID)
	assert.False(t, page.PageInfo.HasMore)

	filtered, err := svc.List(ctx, deadletterdomain.ListRequest{ErrorKind: "granularity_mismatch"})
	require.NoError(t, err)
	require.Len(t, filtered.Entries, 1)
	assert.Equal(t, "evt-b", filtered.Entries[0].EventID)
}

func TestGetErrors(t *testing.T) {
	svc, _ := newTestService(t, 4096)
	ctx := context.Background()

	_, err := svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, deadletterdomain.ErrInvalidID)

	_, err = svc.Get(ctx, "12345")
	assert.ErrorIs(t, err, deadletterdomain.ErrNotFound)

	_, err = svc.List(ctx, deadletterdomain.ListRequest{Pagination: paginationWithToken("%%%")})
	assert.ErrorIs(t, err, deadletterdomain.ErrInvalidPage)
}

func paginationWithToken(token string) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: 10}
}
