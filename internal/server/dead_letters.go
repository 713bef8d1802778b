package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	deadletterdomain "github.com/smallbiznis/pricingread/internal/deadletter/domain"
)

func (s *Server) ListDeadLetters(c *gin.Context) {
	var query struct {
		pageQuery
		ErrorKind string `form:"error_type"`
		EventType string `form:"event_type"`
		OrderID   string `form:"order_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	page, err := query.toPagination()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.deadLetterSvc.List(c.Request.Context(), deadletterdomain.ListRequest{
		Pagination: page,
		ErrorKind:  strings.TrimSpace(query.ErrorKind),
		EventType:  strings.TrimSpace(query.EventType),
		OrderID:    strings.TrimSpace(query.OrderID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Entries, "page_info": resp.PageInfo})
}

func (s *Server) GetDeadLetter(c *gin.Context) {
	resp, err := s.deadLetterSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
