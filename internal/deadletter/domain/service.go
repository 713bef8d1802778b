package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/pricingread/internal/contract"
	"github.com/smallbiznis/pricingread/pkg/db/pagination"
)

var (
	ErrNotFound    = errors.New("dead_letter_not_found")
	ErrInvalidID   = errors.New("invalid_dead_letter_id")
	ErrInvalidPage = errors.New("invalid_page_token")
)

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Entry, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Entry, error)
}

type RecordRequest struct {
	Raw       []byte
	Envelope  contract.Envelope
	Rejection *contract.Rejection
}

type ListRequest struct {
	pagination.Pagination
	ErrorKind string `form:"error_kind"`
	EventType string `form:"event_type"`
	OrderID   string `form:"order_id"`
}

type Entry struct {
	ID          string               `json:"dlq_id"`
	EventID     string               `json:"event_id"`
	EventType   string               `json:"event_type,omitempty"`
	OrderID     string               `json:"order_id,omitempty"`
	RawEvent    string               `json:"raw_event"`
	ErrorClass  string               `json:"error_class"`
	ErrorKind   string               `json:"error_type"`
	ErrorDetail string               `json:"error_message"`
	Violations  []contract.Violation `json:"violations,omitempty"`
	FailedAt    time.Time            `json:"failed_at"`
}

type ListResponse struct {
	Entries  []Entry             `json:"dead_letters"`
	PageInfo pagination.PageInfo `json:"page_info"`
}
