// Package domain defines the admission controller contract: quota checks that
// reserve their usage atomically before any chargeable action proceeds.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// LimitType identifies which ceiling produced a denial.
type LimitType string

const (
	LimitRequests     LimitType = "requests"
	LimitPayloadSize  LimitType = "payload_size"
	LimitStorage      LimitType = "storage"
	LimitWebhookCalls LimitType = "webhook_calls"
	LimitAIExecutions LimitType = "ai_executions"
	LimitHourlyRate   LimitType = "hourly_rate"
)

// Denial codes surfaced in the 429 contract.
const (
	CodeUsageLimitExceeded = "USAGE_LIMIT_EXCEEDED"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)

// Decision is the outcome of one admission check. A denied decision carries
// the full remediation payload for the 429 response.
type Decision struct {
	Allowed bool
	Denial  *Denial
}

type Denial struct {
	Code           string
	LimitType      LimitType
	Message        string
	Current        int64
	Limit          int64
	PercentUsed    float64
	DaysUntilReset int
	// RetryAfter is the suggested wait before retrying: period rollover for
	// monthly ceilings, window drain for the hourly limiter.
	RetryAfter time.Duration
	// Remaining window capacity, only meaningful for hourly denials.
	Remaining int
}

type Service interface {
	// CheckAndReserve admits one ingestion request of payloadSize bytes for
	// the tenant. Monthly request count, single-payload size and monthly
	// storage are evaluated in that order with short-circuit semantics, then
	// the hourly sliding window keyed by rateKey. Allowed decisions have
	// already consumed the quota; denied decisions leave every counter
	// untouched.
	CheckAndReserve(ctx context.Context, tenantID snowflake.ID, payloadSize int64, rateKey string) (Decision, error)

	// CanTriggerWebhook reserves one webhook call against the monthly ceiling.
	CanTriggerWebhook(ctx context.Context, tenantID snowflake.ID) (Decision, error)

	// CanExecuteAI reserves one AI execution against the monthly ceiling.
	CanExecuteAI(ctx context.Context, tenantID snowflake.ID) (Decision, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	// ErrStoreUnavailable means the usage store could not be reached and the
	// controller failed closed.
	ErrStoreUnavailable = errors.New("usage_store_unavailable")
)
