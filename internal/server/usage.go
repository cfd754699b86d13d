package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inlethq/inlet/pkg/tenantctx"
)

func (s *Server) GetUsage(c *gin.Context) {
	tenantID, ok := tenantctx.TenantID(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	snapshot, err := s.usageSvc.Current(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
