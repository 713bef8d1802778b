package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pricingread/internal/contract"
	obslogger "github.com/smallbiznis/pricingread/internal/observability/logger"
	"go.uber.org/zap"
)

// IngestEvent accepts one raw event. A stored event answers 201, a dead-lettered one 422
// with the dead-letter id; only storage failures answer 5xx.
func (s *Server) IngestEvent(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			AbortWithError(c, ErrPayloadTooLarge)
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(raw) == 0 {
		AbortWithError(c, newValidationError("body", "invalid_body", "request body is empty"))
		return
	}

	c.Set(obslogger.KeyEventType, contract.Peek(raw).EventType)

	result, err := s.ingestionSvc.Ingest(c.Request.Context(), raw)
	if err != nil {
		s.log.Error("event ingestion failed", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	c.Set(obslogger.KeyDisposition, result.Disposition())
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}
