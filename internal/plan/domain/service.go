package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// LimitsFor resolves the plan ceilings for a tenant. Tenants without an
	// explicit assignment fall back to the free tier.
	LimitsFor(ctx context.Context, tenantID snowflake.ID) (Limits, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrPlanNotFound  = errors.New("plan_not_found")
)

const DefaultPlanCode = "free"
