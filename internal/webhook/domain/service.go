package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Stats is the monitoring view of one webhook's delivery history.
type Stats struct {
	WebhookID         string     `json:"webhook_id"`
	CallsThisPeriod   int64      `json:"calls_this_period"`
	SuccessfulCalls   int64      `json:"successful_calls"`
	FailedCalls       int64      `json:"failed_calls"`
	TotalCalls        int64      `json:"total_calls"`
	SuccessRate       float64    `json:"success_rate"`
	AvgResponseMs     float64    `json:"avg_response_ms"`
	FastestResponseMs int64      `json:"fastest_response_ms"`
	SlowestResponseMs int64      `json:"slowest_response_ms"`
	LastTriggeredAt   *time.Time `json:"last_triggered_at"`
	LastSuccessAt     *time.Time `json:"last_success_at"`
}

// Service exposes the read side of the delivery engine: execution history
// and aggregated stats, always scoped to the owning tenant.
type Service interface {
	Deliveries(ctx context.Context, tenantID, webhookID snowflake.ID, limit int) ([]DeliveryLog, error)
	Stats(ctx context.Context, tenantID, webhookID snowflake.ID) (*Stats, error)
}
