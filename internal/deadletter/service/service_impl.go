package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	"github.com/smallbiznis/pricingread/internal/clock"
	"github.com/smallbiznis/pricingread/internal/config"
	"github.com/smallbiznis/pricingread/internal/contract"
	deadletterdomain "github.com/smallbiznis/pricingread/internal/deadletter/domain"
	"github.com/smallbiznis/pricingread/pkg/db/option"
	"github.com/smallbiznis/pricingread/pkg/db/pagination"
	"github.com/smallbiznis/pricingread/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Ingest *config.IngestConfigHolder
}

type Service struct {
	log *zap.Logger

	genID  *snowflake.Node
	clock  clock.Clock
	ingest *config.IngestConfigHolder
	repo   repository.Repository[deadletterdomain.DeadLetter]
}

func NewService(p ServiceParam) deadletterdomain.Service {
	return &Service{
		log: p.Log.Named("deadletter.service"),

		genID:  p.GenID,
		clock:  p.Clock,
		ingest: p.Ingest,
		repo:   repository.ProvideStore[deadletterdomain.DeadLetter](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, req deadletterdomain.RecordRequest) (*deadletterdomain.Entry, error) {
	rej := req.Rejection
	if rej == nil {
		rej = contract.SchemaRejection(contract.KindMalformedPayload, "rejected without a reason")
	}

	eventID := strings.TrimSpace(req.Envelope.EventID)
	if eventID == "" {
		eventID = deadletterdomain.UnknownEventID
	}

	raw, encoding := s.encode(req.Raw)
	row := &deadletterdomain.DeadLetter{
		ID:          s.genID.Generate(),
		EventID:     eventID,
		EventType:   req.Envelope.EventType,
		OrderID:     req.Envelope.OrderID,
		RawEvent:    raw,
		Encoding:    encoding,
		RawSize:     len(req.Raw),
		ErrorClass:  string(rej.Class),
		ErrorKind:   string(rej.Kind),
		ErrorDetail: rej.Detail,
		Violations:  datatypes.NewJSONType(rej.Violations),
		FailedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("record dead letter: %w", err)
	}

	s.log.Info("event dead-lettered",
		zap.String("dlq_id", row.ID.String()),
		zap.String("event_id", row.EventID),
		zap.String("event_type", row.EventType),
		zap.String("error_kind", row.ErrorKind),
		zap.String("encoding", row.Encoding),
	)

	return s.toEntry(row)
}

func (s *Service) List(ctx context.Context, req deadletterdomain.ListRequest) (*deadletterdomain.ListResponse, error) {
	if req.PageToken != "" {
		if _, err := pagination.DecodeCursor(req.PageToken); err != nil {
			return nil, deadletterdomain.ErrInvalidPage
		}
	}
	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	if size > 250 {
		size = 250
	}
	req.PageSize = size

	filter := &deadletterdomain.DeadLetter{
		ErrorKind: strings.TrimSpace(req.ErrorKind),
		EventType: strings.TrimSpace(req.EventType),
		OrderID:   strings.TrimSpace(req.OrderID),
	}
	rows, err := s.repo.Find(ctx, filter, option.ApplyDescCursor(req.Pagination, "failed_at"))
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, int32(size), func(d *deadletterdomain.DeadLetter) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        d.ID.String(),
			CreatedAt: d.FailedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(rows) > size {
		rows = rows[:size]
	}

	out := &deadletterdomain.ListResponse{Entries: make([]deadletterdomain.Entry, 0, len(rows))}
	for _, row := range rows {
		entry, err := s.toEntry(row)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, *entry)
	}
	if pageInfo != nil {
		out.PageInfo = *pageInfo
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*deadletterdomain.Entry, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || parsed <= 0 {
		return nil, deadletterdomain.ErrInvalidID
	}

	row, err := s.repo.FindOne(ctx, &deadletterdomain.DeadLetter{ID: snowflake.ID(parsed)})
	if err != nil {
		return nil, fmt.Errorf("get dead letter: %w", err)
	}
	if row == nil {
		return nil, deadletterdomain.ErrNotFound
	}
	return s.toEntry(row)
}

// encode compresses payloads above the configured threshold; small ones stay readable in SQL.
func (s *Service) encode(raw []byte) ([]byte, string) {
	threshold := s.ingest.Get().DeadLetterCompressThreshold
	if threshold > 0 && len(raw) > threshold {
		return snappy.Encode(nil, raw), deadletterdomain.EncodingSnappy
	}
	return raw, deadletterdomain.EncodingIdentity
}

func (s *Service) decode(row *deadletterdomain.DeadLetter) ([]byte, error) {
	switch row.Encoding {
	case deadletterdomain.EncodingSnappy:
		out, err := snappy.Decode(nil, row.RawEvent)
		if err != nil {
			return nil, fmt.Errorf("decode dead letter %s: %w", row.ID, err)
		}
		return out, nil
	default:
		return row.RawEvent, nil
	}
}

func (s *Service) toEntry(row *deadletterdomain.DeadLetter) (*deadletterdomain.Entry, error) {
	raw, err := s.decode(row)
	if err != nil {
		return nil, err
	}
	return &deadletterdomain.Entry{
		ID:          row.ID.String(),
		EventID:     row.EventID,
		EventType:   row.EventType,
		OrderID:     row.OrderID,
		RawEvent:    string(raw),
		ErrorClass:  row.ErrorClass,
		ErrorKind:   row.ErrorKind,
		ErrorDetail: row.ErrorDetail,
		Violations:  row.Violations.Data(),
		FailedAt:    row.FailedAt,
	}, nil
}
