package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/inlethq/inlet/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, monthly_request_limit, monthly_webhook_limit, monthly_ai_limit,
		        max_payload_bytes, max_storage_bytes, hourly_rate_limit, max_endpoints, max_api_keys,
		        created_at, updated_at
		 FROM plans WHERE code = ?`,
		code,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

func (r *repo) FindForTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT p.id, p.code, p.name, p.monthly_request_limit, p.monthly_webhook_limit, p.monthly_ai_limit,
		        p.max_payload_bytes, p.max_storage_bytes, p.hourly_rate_limit, p.max_endpoints, p.max_api_keys,
		        p.created_at, p.updated_at
		 FROM plans p
		 JOIN tenant_plans tp ON tp.plan_id = p.id
		 WHERE tp.tenant_id = ?`,
		tenantID,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}
