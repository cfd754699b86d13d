// Package domain contains the per-tenant, per-period usage counters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageRecord accumulates chargeable activity for one tenant in one period.
// Period rollover is implicit: a new period key selects a fresh row, nothing
// is ever reset in place.
type UsageRecord struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID      snowflake.ID `json:"tenant_id" gorm:"not null;index:ux_usage_tenant_period,unique,priority:1"`
	Period        string       `json:"period" gorm:"type:text;not null;index:ux_usage_tenant_period,unique,priority:2"`
	RequestCount  int64        `json:"request_count" gorm:"not null;default:0"`
	IngestedBytes int64        `json:"ingested_bytes" gorm:"not null;default:0"`
	WebhookCalls  int64        `json:"webhook_calls" gorm:"not null;default:0"`
	AIExecutions  int64        `json:"ai_executions" gorm:"column:ai_executions;not null;default:0"`
	StoredBytes   int64        `json:"stored_bytes" gorm:"not null;default:0"`
	EndpointCount int          `json:"endpoint_count" gorm:"not null;default:0"`
	APIKeyCount   int          `json:"api_key_count" gorm:"not null;default:0"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }

// Counter names one incrementable UsageRecord column. The repository only
// accepts these values, never a caller-supplied column name.
type Counter string

const (
	CounterRequests      Counter = "request_count"
	CounterIngestedBytes Counter = "ingested_bytes"
	CounterWebhookCalls  Counter = "webhook_calls"
	CounterAIExecutions  Counter = "ai_executions"
	CounterStoredBytes   Counter = "stored_bytes"
)

// MonthKey returns the monthly period key for t, e.g. "2026-08".
func MonthKey(t time.Time) string { return t.UTC().Format("2006-01") }

// DayKey returns the daily period key for t, e.g. "2026-08-31".
func DayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// DaysUntilReset returns whole days until the monthly period rolls over.
func DaysUntilReset(t time.Time) int {
	t = t.UTC()
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	days := int(firstOfNext.Sub(t).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}

// SecondsUntilReset returns seconds until the monthly period rolls over.
func SecondsUntilReset(t time.Time) int {
	t = t.UTC()
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return int(firstOfNext.Sub(t).Seconds())
}
