// Package domain contains the webhook configuration, trigger conditions,
// outbound envelope and the append-only delivery log.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BackoffStrategy selects the delay curve between retry attempts.
type BackoffStrategy string

const (
	BackoffExponential BackoffStrategy = "exponential"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffFixed       BackoffStrategy = "fixed"
)

// Error kinds recorded on failed delivery attempts.
const (
	ErrorKindTimeout    = "timeout"
	ErrorKindConnection = "connection"
	ErrorKindHTTP       = "http_error"
	ErrorKindExecution  = "execution_error"
)

// Webhook is one tenant-configured delivery target watching an ingestion
// endpoint. Configuration is written by management CRUD outside this core;
// the running stats columns are mutated only by the delivery pipeline.
type Webhook struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	TenantID       snowflake.ID    `json:"tenant_id" gorm:"not null;index"`
	EndpointID     snowflake.ID    `json:"endpoint_id" gorm:"not null;index"`
	Name           string          `json:"name" gorm:"type:text;not null"`
	TargetURL      string          `json:"target_url" gorm:"type:text;not null"`
	Secret         string          `json:"-" gorm:"type:text"`
	TriggerEvents  datatypes.JSON  `json:"trigger_events" gorm:"type:jsonb"`
	Conditions     datatypes.JSON  `json:"conditions" gorm:"type:jsonb"`
	Active         bool            `json:"active" gorm:"not null;default:true"`
	TimeoutSeconds int             `json:"timeout_seconds" gorm:"not null;default:10"`
	MaxRetries     int             `json:"max_retries" gorm:"not null;default:3"`
	RetryBackoff   BackoffStrategy `json:"retry_backoff" gorm:"type:text;not null;default:exponential"`

	CallsThisPeriod   int64      `json:"calls_this_period" gorm:"not null;default:0"`
	SuccessfulCalls   int64      `json:"successful_calls" gorm:"not null;default:0"`
	FailedCalls       int64      `json:"failed_calls" gorm:"not null;default:0"`
	TotalCalls        int64      `json:"total_calls" gorm:"not null;default:0"`
	LastTriggeredAt   *time.Time `json:"last_triggered_at"`
	LastSuccessAt     *time.Time `json:"last_success_at"`
	AvgResponseMs     float64    `json:"avg_response_ms" gorm:"not null;default:0"`
	FastestResponseMs int64      `json:"fastest_response_ms" gorm:"not null;default:0"`
	SlowestResponseMs int64      `json:"slowest_response_ms" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Webhook) TableName() string { return "webhooks" }

// MaxAttempts is the total attempt ceiling: the first call plus retries.
func (w *Webhook) MaxAttempts() int {
	if w.MaxRetries < 0 {
		return 1
	}
	return w.MaxRetries + 1
}

// Timeout returns the per-attempt deadline.
func (w *Webhook) Timeout() time.Duration {
	if w.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// TriggerEventList decodes the configured trigger event names.
func (w *Webhook) TriggerEventList() []string {
	if len(w.TriggerEvents) == 0 {
		return nil
	}
	var events []string
	if err := json.Unmarshal(w.TriggerEvents, &events); err != nil {
		return nil
	}
	return events
}

// ConditionList decodes the structured trigger conditions. Malformed
// configuration decodes to nil, which evaluates as "no conditions".
func (w *Webhook) ConditionList() []Condition {
	if len(w.Conditions) == 0 {
		return nil
	}
	var conditions []Condition
	if err := json.Unmarshal(w.Conditions, &conditions); err != nil {
		return nil
	}
	return conditions
}

// Event is the delivery-facing view of one ingested record.
type Event struct {
	ID         snowflake.ID
	TenantID   snowflake.ID
	EndpointID snowflake.ID
	Name       string
	Category   string
	Data       map[string]any
}

// DeliveryLog is the append-only execution log: one row per HTTP attempt,
// never mutated after insert.
type DeliveryLog struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	WebhookID    snowflake.ID   `json:"webhook_id" gorm:"not null;index"`
	TenantID     snowflake.ID   `json:"tenant_id" gorm:"not null;index"`
	EventID      snowflake.ID   `json:"event_id" gorm:"not null"`
	Attempt      int            `json:"attempt" gorm:"not null"`
	MaxAttempts  int            `json:"max_attempts" gorm:"not null"`
	RequestBody  datatypes.JSON `json:"request_body" gorm:"type:jsonb"`
	Signed       bool           `json:"signed" gorm:"not null;default:false"`
	Signature    string         `json:"signature" gorm:"type:text"`
	Success      bool           `json:"success" gorm:"not null"`
	StatusCode   int            `json:"status_code" gorm:"not null;default:0"`
	ResponseBody string         `json:"response_body" gorm:"type:text"`
	ErrorKind    string         `json:"error_kind" gorm:"type:text"`
	ErrorMessage string         `json:"error_message" gorm:"type:text"`
	DurationMs   int64          `json:"duration_ms" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (DeliveryLog) TableName() string { return "webhook_delivery_logs" }
