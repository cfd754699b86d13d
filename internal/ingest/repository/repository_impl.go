package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ingestdomain "github.com/inlethq/inlet/internal/ingest/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ingestdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *ingestdomain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO events
		 (id, tenant_id, endpoint_id, name, category, data, size_bytes, request_id, source_ip, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.TenantID, event.EndpointID,
		event.Name, event.Category, event.Data, event.SizeBytes,
		event.RequestID, event.SourceIP, event.UserAgent, event.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ingestdomain.Event, error) {
	var event ingestdomain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, endpoint_id, name, category, data, size_bytes,
		        request_id, source_ip, user_agent, created_at
		 FROM events WHERE id = ?`,
		id,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}
