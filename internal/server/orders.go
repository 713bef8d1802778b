package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
)

func (s *Server) ListOrders(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	page, err := query.toPagination()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.readSvc.ListOrders(c.Request.Context(), factdomain.ListOrdersRequest{Pagination: page})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Orders, "page_info": resp.PageInfo})
}

func (s *Server) GetLatestPricing(c *gin.Context) {
	resp, err := s.readSvc.LatestBreakdown(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPricingHistory(c *gin.Context) {
	resp, err := s.readSvc.History(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	resp, err := s.readSvc.PaymentTimeline(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLatestPayment(c *gin.Context) {
	resp, err := s.readSvc.LatestPayment(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSuppliers(c *gin.Context) {
	resp, err := s.readSvc.SupplierTimeline(c.Request.Context(), c.Param("order_id"), strings.TrimSpace(c.Query("order_detail_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLatestSuppliers(c *gin.Context) {
	resp, err := s.readSvc.LatestSuppliers(c.Request.Context(), c.Param("order_id"), strings.TrimSpace(c.Query("order_detail_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetObligations(c *gin.Context) {
	resp, err := s.readSvc.Obligations(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
