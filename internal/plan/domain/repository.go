package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Plan, error)
	FindForTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Plan, error)
}
