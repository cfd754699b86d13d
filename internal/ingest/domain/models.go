// Package domain defines the ingestion pipeline contract: events accepted
// through an endpoint after admission, persisted, then fanned out to webhooks.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	admissiondomain "github.com/inlethq/inlet/internal/admission/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultEventName is assigned when the sender does not name the event.
const DefaultEventName = "data.received"

// Event is one accepted ingestion record.
type Event struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	TenantID   snowflake.ID   `json:"tenant_id" gorm:"not null;index"`
	EndpointID snowflake.ID   `json:"endpoint_id" gorm:"not null;index"`
	Name       string         `json:"name" gorm:"type:text;not null"`
	Category   string         `json:"category" gorm:"type:text"`
	Data       datatypes.JSON `json:"data" gorm:"type:jsonb"`
	SizeBytes  int64          `json:"size_bytes" gorm:"not null;default:0"`
	RequestID  string         `json:"request_id" gorm:"type:text"`
	SourceIP   string         `json:"source_ip" gorm:"type:text"`
	UserAgent  string         `json:"user_agent" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "events" }

// Input carries one inbound ingestion request.
type Input struct {
	Path      string
	EventName string
	Category  string
	Data      map[string]any
	// SizeBytes is the raw request body length, checked against the plan's
	// payload ceiling before anything is stored.
	SizeBytes int64
	RequestID string
	SourceIP  string
	UserAgent string
}

// Receipt acknowledges an accepted event.
type Receipt struct {
	EventID    string `json:"event_id"`
	Event      string `json:"event"`
	EndpointID string `json:"endpoint_id"`
	ReceivedAt string `json:"received_at"`
}

// Result is the outcome of one ingestion: either a receipt or a denial,
// never both.
type Result struct {
	Receipt  *Receipt
	Decision admissiondomain.Decision
}

type Service interface {
	// Ingest admits, persists and dispatches one event. A quota or rate
	// denial returns a Result with Decision.Allowed=false and a nil error;
	// the caller renders the 429 contract from the Denial.
	Ingest(ctx context.Context, input Input) (*Result, error)
}

var (
	ErrEndpointNotFound = errors.New("endpoint_not_found")
	ErrInvalidPayload   = errors.New("invalid_payload")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
}
