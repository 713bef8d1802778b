package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetLineage(c *gin.Context) {
	resp, err := s.readSvc.Lineage(c.Request.Context(), c.Param("semantic_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetNetAmount(c *gin.Context) {
	resp, err := s.readSvc.NetAmount(c.Request.Context(), c.Param("semantic_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
