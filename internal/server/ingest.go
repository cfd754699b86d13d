package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	admissiondomain "github.com/inlethq/inlet/internal/admission/domain"
	ingestdomain "github.com/inlethq/inlet/internal/ingest/domain"
)

// maxIngestBody is a hard transport cap. Plan payload ceilings are lower and
// enforced by admission; this only bounds what gets buffered.
const maxIngestBody = 10 << 20

type usageDeniedResponse struct {
	Error          string  `json:"error"`
	Message        string  `json:"message"`
	Code           string  `json:"code"`
	LimitType      string  `json:"limit_type"`
	CurrentUsage   int64   `json:"current_usage"`
	Limit          int64   `json:"limit"`
	PercentageUsed float64 `json:"percentage_used"`
	DaysUntilReset int     `json:"days_until_reset"`
}

type rateDeniedResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retry_after"`
}

func (s *Server) IngestEvent(c *gin.Context) {
	path := strings.Trim(c.Param("path"), "/")
	if path == "" {
		AbortWithError(c, ingestdomain.ErrEndpointNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIngestBody))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		AbortWithError(c, ingestdomain.ErrInvalidPayload)
		return
	}

	input := ingestdomain.Input{
		Path:      path,
		Data:      data,
		SizeBytes: int64(len(body)),
		RequestID: requestID(c),
		SourceIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if name, ok := data["event"].(string); ok {
		input.EventName = name
	}
	if category, ok := data["category"].(string); ok {
		input.Category = category
	}

	result, err := s.ingestSvc.Ingest(c.Request.Context(), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !result.Decision.Allowed {
		renderDenial(c, result.Decision.Denial)
		return
	}

	c.JSON(http.StatusAccepted, result.Receipt)
}

// renderDenial writes the 429 remediation contract. Monthly ceilings carry
// the usage headers, the hourly window carries the rate-limit headers; both
// set Retry-After.
func renderDenial(c *gin.Context, d *admissiondomain.Denial) {
	retryAfter := int(d.RetryAfter / time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))

	if d.Code == admissiondomain.CodeRateLimitExceeded {
		c.Header("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(d.RetryAfter).Unix(), 10))
		c.JSON(http.StatusTooManyRequests, rateDeniedResponse{
			Error:      "rate limit exceeded",
			Message:    d.Message,
			Code:       d.Code,
			RetryAfter: retryAfter,
		})
		return
	}

	remaining := d.Limit - d.Current
	if remaining < 0 {
		remaining = 0
	}
	c.Header("X-Usage-Limit-Type", string(d.LimitType))
	c.Header("X-Usage-Limit", strconv.FormatInt(d.Limit, 10))
	c.Header("X-Usage-Current", strconv.FormatInt(d.Current, 10))
	c.Header("X-Usage-Remaining", strconv.FormatInt(remaining, 10))
	c.Header("X-Usage-Reset-Days", strconv.Itoa(d.DaysUntilReset))
	c.JSON(http.StatusTooManyRequests, usageDeniedResponse{
		Error:          "usage limit exceeded",
		Message:        d.Message,
		Code:           d.Code,
		LimitType:      string(d.LimitType),
		CurrentUsage:   d.Current,
		Limit:          d.Limit,
		PercentageUsed: d.PercentUsed,
		DaysUntilReset: d.DaysUntilReset,
	})
}
