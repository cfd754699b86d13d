package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	admissiondomain "github.com/inlethq/inlet/internal/admission/domain"
	endpointdomain "github.com/inlethq/inlet/internal/endpoint/domain"
	ingestdomain "github.com/inlethq/inlet/internal/ingest/domain"
	plandomain "github.com/inlethq/inlet/internal/plan/domain"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTenantRequired = errors.New("tenant_required")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrTenantRequired),
		errors.Is(err, admissiondomain.ErrInvalidTenant),
		errors.Is(err, plandomain.ErrInvalidTenant):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "a valid tenant id is required",
		}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ingestdomain.ErrInvalidPayload):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, admissiondomain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "usage store unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ingestdomain.ErrEndpointNotFound),
		errors.Is(err, endpointdomain.ErrNotFound),
		errors.Is(err, webhookdomain.ErrNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
