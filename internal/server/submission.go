package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SubmitInvoice drives the draft through the gateway. Rejections and timeouts are recorded
// on the returned invoice; only allocation, state and infrastructure failures are errors.
func (s *Server) SubmitInvoice(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}
	tenantID, err := tenantIDFrom(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.submissionSvc.Submit(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ValidateInvoice(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}
	tenantID, err := tenantIDFrom(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.submissionSvc.Validate(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListAttempts(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}
	tenantID, err := tenantIDFrom(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.invoiceSvc.GetByID(c.Request.Context(), id.String()); err != nil {
		AbortWithError(c, err)
		return
	}

	attempts, err := s.auditSvc.List(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": attempts})
}
