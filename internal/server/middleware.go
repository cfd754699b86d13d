package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	admissiondomain "github.com/inlethq/inlet/internal/admission/domain"
	"github.com/inlethq/inlet/internal/ratelimit"
	"github.com/inlethq/inlet/pkg/tenantctx"
)

const (
	HeaderTenant    = "X-Org-ID"
	HeaderRequestID = "X-Request-ID"
)

// RequestID propagates the caller's request id or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// TenantContext resolves the tenant from the X-Org-ID header and injects it
// into the request context.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			AbortWithError(c, ErrTenantRequired)
			return
		}
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			AbortWithError(c, ErrTenantRequired)
			return
		}
		ctx := tenantctx.WithTenantID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// IPRateLimit gates the public ingestion surface per source address, before
// the endpoint and its tenant are resolved, so unknown senders cannot grind
// the lookup path. It shares the window store with the tenant limiter under
// ip:-prefixed keys.
func (s *Server) IPRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := s.cfg.RateLimit.IPHourlyLimit
		if limit <= 0 {
			return
		}
		window := s.cfg.RateLimit.Window
		if window <= 0 {
			window = time.Hour
		}

		result, err := s.window.Take(c.Request.Context(), ratelimit.KeyForIP(c.ClientIP()), limit, window, s.clock.Now())
		if err != nil {
			// an unreachable window store never blocks ingestion, matching
			// the admission controller's policy for the tenant window
			return
		}
		if result.Allowed {
			return
		}

		renderDenial(c, &admissiondomain.Denial{
			Code:        admissiondomain.CodeRateLimitExceeded,
			LimitType:   admissiondomain.LimitHourlyRate,
			Message:     "per-address rate limit exceeded",
			Current:     int64(limit),
			Limit:       int64(limit),
			PercentUsed: 100,
			RetryAfter:  result.RetryAfter,
			Remaining:   result.Remaining,
		})
		c.Abort()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}
