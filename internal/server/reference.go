package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) SuggestRef(c *gin.Context) {
	tenantID, err := tenantIDFrom(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	suggestion, err := s.refSvc.Suggest(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": suggestion})
}

func (s *Server) CheckRef(c *gin.Context) {
	refNo := strings.TrimSpace(c.Query("ref_no"))
	if refNo == "" {
		AbortWithError(c, newValidationError("ref_no", "required", "ref_no is required"))
		return
	}
	tenantID, err := tenantIDFrom(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.refSvc.CheckAvailability(c.Request.Context(), tenantID, refNo, nil); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ref_no": refNo, "available": true}})
}
