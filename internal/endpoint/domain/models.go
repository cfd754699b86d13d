// Package domain contains the data-ingestion endpoint read model. Endpoint
// CRUD lives outside this core; deliveries only need identity and path.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Endpoint is one tenant-owned ingestion target that webhooks can watch.
type Endpoint struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID  snowflake.ID `json:"tenant_id" gorm:"not null;index"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	URLPath   string       `json:"url_path" gorm:"type:text;not null;uniqueIndex"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Endpoint) TableName() string { return "endpoints" }

// Summary is the envelope-facing view of an endpoint.
type Summary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URLPath string `json:"url_path"`
}

func (e *Endpoint) Summary() Summary {
	return Summary{
		ID:      e.ID.String(),
		Name:    e.Name,
		URLPath: e.URLPath,
	}
}
