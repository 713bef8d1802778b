package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListRefundTimeline(c *gin.Context) {
	resp, err := s.readSvc.RefundTimeline(c.Request.Context(), c.Param("refund_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLatestRefund(c *gin.Context) {
	resp, err := s.readSvc.LatestRefund(c.Request.Context(), c.Param("refund_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
