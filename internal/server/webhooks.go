package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/inlethq/inlet/pkg/tenantctx"
)

func (s *Server) ListWebhookDeliveries(c *gin.Context) {
	tenantID, ok := tenantctx.TenantID(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	webhookID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	logs, err := s.webhookSvc.Deliveries(c.Request.Context(), tenantID, webhookID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deliveries": logs})
}

func (s *Server) GetWebhookStats(c *gin.Context) {
	tenantID, ok := tenantctx.TenantID(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrTenantRequired)
		return
	}

	webhookID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	stats, err := s.webhookSvc.Stats(c.Request.Context(), tenantID, webhookID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
