package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Endpoint, error)
	FindByPath(ctx context.Context, db *gorm.DB, urlPath string) (*Endpoint, error)
}

var ErrNotFound = errors.New("endpoint_not_found")
