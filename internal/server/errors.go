package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	deadletterdomain "github.com/smallbiznis/pricingread/internal/deadletter/domain"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	readdomain "github.com/smallbiznis/pricingread/internal/readmodel/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrPayloadTooLarge    = errors.New("payload_too_large")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// errorRule maps a family of errors onto one response status and type.
type errorRule struct {
	status  int
	kind    string
	message string
	errs    []error
}

// Rules are checked in order. Anything unmatched, including storage failures, is a 500.
var errorRules = []errorRule{
	{
		status:  http.StatusBadRequest,
		kind:    "validation_error",
		message: "validation error",
		errs: []error{
			ErrInvalidRequest,
			readdomain.ErrInvalidOrderID,
			readdomain.ErrInvalidSemanticID,
			readdomain.ErrInvalidRefundID,
			deadletterdomain.ErrInvalidID,
			deadletterdomain.ErrInvalidPage,
			factdomain.ErrInvalidScope,
		},
	},
	{
		status:  http.StatusNotFound,
		kind:    "not_found",
		message: "not found",
		errs: []error{
			ErrNotFound,
			readdomain.ErrNotFound,
			deadletterdomain.ErrNotFound,
			gorm.ErrRecordNotFound,
		},
	},
	{
		status:  http.StatusRequestEntityTooLarge,
		kind:    "payload_too_large",
		message: "payload too large",
		errs:    []error{ErrPayloadTooLarge},
	},
	{
		status:  http.StatusServiceUnavailable,
		kind:    "service_unavailable",
		message: "version assignment is busy, retry later",
		errs:    []error{ErrServiceUnavailable, factdomain.ErrVersionTimeout},
	},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	for _, rule := range errorRules {
		matched := matchAny(err, rule.errs)
		if matched == nil {
			continue
		}
		payload := errorPayload{Type: rule.kind, Message: rule.message}
		if rule.status == http.StatusBadRequest {
			payload.Errors = []ValidationError{sentinelViolation(matched)}
		}
		return rule.status, payload
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func matchAny(err error, targets []error) error {
	if err == nil {
		return nil
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

// sentinelViolation turns a snake_case sentinel such as invalid_order_id into a
// field-level violation on order_id.
func sentinelViolation(sentinel error) ValidationError {
	code := sentinel.Error()
	field := "request"
	if name, ok := strings.CutPrefix(code, "invalid_"); ok && code != ErrInvalidRequest.Error() {
		field = name
	}
	message := "invalid value"
	if sentinel == ErrInvalidRequest {
		message = "invalid request"
	}
	return ValidationError{Field: field, Code: code, Message: message}
}

// classifyErrorForLog reports the response type and a short code for the request log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return payload.Type, "server"
	case len(payload.Errors) > 0:
		return payload.Type, payload.Errors[0].Code
	default:
		return payload.Type, "client"
	}
}
