// Package domain contains the subscription plan limits read by admission.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan defines the quota ceilings attached to a subscription tier.
type Plan struct {
	ID                  snowflake.ID `json:"id" gorm:"primaryKey"`
	Code                string       `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name                string       `json:"name" gorm:"type:text;not null"`
	MonthlyRequestLimit int64        `json:"monthly_request_limit" gorm:"not null"`
	MonthlyWebhookLimit int64        `json:"monthly_webhook_limit" gorm:"not null"`
	MonthlyAILimit      int64        `json:"monthly_ai_limit" gorm:"column:monthly_ai_limit;not null"`
	MaxPayloadBytes     int64        `json:"max_payload_bytes" gorm:"not null"`
	MaxStorageBytes     int64        `json:"max_storage_bytes" gorm:"not null"`
	HourlyRateLimit     int          `json:"hourly_rate_limit" gorm:"not null"`
	MaxEndpoints        int          `json:"max_endpoints" gorm:"not null"`
	MaxAPIKeys          int          `json:"max_api_keys" gorm:"not null"`
	CreatedAt           time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// TenantPlan assigns a plan to a tenant. Written by billing, read-only here.
type TenantPlan struct {
	TenantID  snowflake.ID `json:"tenant_id" gorm:"primaryKey"`
	PlanID    snowflake.ID `json:"plan_id" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TenantPlan) TableName() string { return "tenant_plans" }

// Limits is the admission-facing view of a plan.
type Limits struct {
	PlanCode        string
	MonthlyRequests int64
	MonthlyWebhooks int64
	MonthlyAI       int64
	MaxPayloadBytes int64
	MaxStorageBytes int64
	HourlyRate      int
}

func (p *Plan) Limits() Limits {
	return Limits{
		PlanCode:        p.Code,
		MonthlyRequests: p.MonthlyRequestLimit,
		MonthlyWebhooks: p.MonthlyWebhookLimit,
		MonthlyAI:       p.MonthlyAILimit,
		MaxPayloadBytes: p.MaxPayloadBytes,
		MaxStorageBytes: p.MaxStorageBytes,
		HourlyRate:      p.HourlyRateLimit,
	}
}
