package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// StatsDelta is one terminal delivery outcome. The running counters and the
// online response-time average are folded in by the repository in a single
// relative UPDATE, so concurrent pipelines finishing against the same webhook
// never overwrite each other's counts.
type StatsDelta struct {
	Success     bool
	DurationMs  int64
	CompletedAt time.Time
}

type Repository interface {
	// ListActiveByEndpoint returns the active webhooks watching an endpoint.
	// Trigger-event filtering happens in the evaluator, not in SQL, because
	// the trigger list is stored as JSON.
	ListActiveByEndpoint(ctx context.Context, db *gorm.DB, endpointID snowflake.ID) ([]Webhook, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Webhook, error)

	// UpdateStats folds one terminal delivery into the running counters.
	UpdateStats(ctx context.Context, db *gorm.DB, id snowflake.ID, delta StatsDelta) error

	// InsertLog appends one delivery attempt to the execution log.
	InsertLog(ctx context.Context, db *gorm.DB, entry *DeliveryLog) error
	ListLogs(ctx context.Context, db *gorm.DB, webhookID snowflake.ID, limit int) ([]DeliveryLog, error)
}

var ErrNotFound = errors.New("webhook_not_found")
