// Package domain defines the ingestion entry point that routes events to the fact store
// or the dead-letter sink.
package domain

import "context"

const (
	DispositionStored       = "stored"
	DispositionDeadLettered = "dead_lettered"
)

// Result is returned for every event. Expected failures are reported here, not as errors.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// Disposition reports where the event went.
func (r *Result) Disposition() string {
	if r != nil && r.Success {
		return DispositionStored
	}
	return DispositionDeadLettered
}

type Service interface {
	// Ingest returns an error only when storage fails; the event was then neither stored
	// nor dead-lettered and the caller may retry it.
	Ingest(ctx context.Context, raw []byte) (*Result, error)
}
