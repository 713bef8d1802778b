package contract

import (
	"fmt"
	"strings"
)

type ErrorClass string

const (
	ClassSchemaViolation       ErrorClass = "schema_violation"
	ClassBusinessRuleViolation ErrorClass = "business_rule_violation"
)

type ErrorKind string

const (
	KindMalformedPayload         ErrorKind = "malformed_payload"
	KindMissingEventType         ErrorKind = "missing_event_type"
	KindUnknownEventType         ErrorKind = "unknown_event_type"
	KindSchemaViolation          ErrorKind = "schema_violation"
	KindGranularityMismatch      ErrorKind = "granularity_mismatch"
	KindSemanticMismatch         ErrorKind = "semantic_mismatch"
	KindInvalidAmountSign        ErrorKind = "invalid_amount_sign"
	KindMissingOriginalComponent ErrorKind = "missing_original_component"
)

// Violation is one field-level problem found in a payload.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Rejection is an expected ingestion failure. It is dead-lettered, never raised past ingestion.
type Rejection struct {
	Class      ErrorClass
	Kind       ErrorKind
	Detail     string
	Violations []Violation
}

func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Detail)
}

func SchemaRejection(kind ErrorKind, detail string, violations ...Violation) *Rejection {
	return &Rejection{Class: ClassSchemaViolation, Kind: kind, Detail: detail, Violations: violations}
}

func BusinessRejection(kind ErrorKind, format string, args ...any) *Rejection {
	return &Rejection{Class: ClassBusinessRuleViolation, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

type violations []Violation

func (v *violations) add(field, code, format string, args ...any) {
	*v = append(*v, Violation{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (v violations) rejection() error {
	if len(v) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(v))
	for _, item := range v {
		msgs = append(msgs, item.Field+": "+item.Message)
	}
	return SchemaRejection(KindSchemaViolation, strings.Join(msgs, "; "), v...)
}
