package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	endpointdomain "github.com/inlethq/inlet/internal/endpoint/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() endpointdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*endpointdomain.Endpoint, error) {
	var endpoint endpointdomain.Endpoint
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, url_path, active, created_at, updated_at
		 FROM endpoints WHERE id = ?`,
		id,
	).Scan(&endpoint).Error
	if err != nil {
		return nil, err
	}
	if endpoint.ID == 0 {
		return nil, nil
	}
	return &endpoint, nil
}

func (r *repo) FindByPath(ctx context.Context, db *gorm.DB, urlPath string) (*endpointdomain.Endpoint, error) {
	var endpoint endpointdomain.Endpoint
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, url_path, active, created_at, updated_at
		 FROM endpoints WHERE url_path = ? AND active`,
		urlPath,
	).Scan(&endpoint).Error
	if err != nil {
		return nil, err
	}
	if endpoint.ID == 0 {
		return nil, nil
	}
	return &endpoint, nil
}
