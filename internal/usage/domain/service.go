package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Current returns the tenant's usage snapshot for the running monthly
	// period, including percent-used figures against the tenant's plan.
	Current(ctx context.Context, tenantID snowflake.ID) (*Snapshot, error)
}

// Snapshot is the read model consumed by dashboards and the denial contract.
type Snapshot struct {
	TenantID       string         `json:"tenant_id"`
	Period         string         `json:"period"`
	PlanCode       string         `json:"plan_code"`
	DaysUntilReset int            `json:"days_until_reset"`
	Requests       CounterUsage   `json:"requests"`
	WebhookCalls   CounterUsage   `json:"webhook_calls"`
	AIExecutions   CounterUsage   `json:"ai_executions"`
	StoredBytes    CounterUsage   `json:"stored_bytes"`
	Warnings       []UsageWarning `json:"warnings,omitempty"`
}

type CounterUsage struct {
	Used        int64   `json:"used"`
	Limit       int64   `json:"limit"`
	PercentUsed float64 `json:"percentage_used"`
}

// UsageWarning flags a counter at or above the warning threshold.
type UsageWarning struct {
	LimitType   string  `json:"limit_type"`
	PercentUsed float64 `json:"percentage_used"`
}

// WarningThresholdPercent is the point at which a counter is surfaced to
// callers as approaching its ceiling.
const WarningThresholdPercent = 80.0

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
)
