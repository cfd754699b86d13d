package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/inlethq/inlet/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo plandomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo plandomain.Repository
}

func New(p Params) plandomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("plan.service"),
		repo: p.Repo,
	}
}

func (s *Service) LimitsFor(ctx context.Context, tenantID snowflake.ID) (plandomain.Limits, error) {
	if tenantID == 0 {
		return plandomain.Limits{}, plandomain.ErrInvalidTenant
	}

	plan, err := s.repo.FindForTenant(ctx, s.db, tenantID)
	if err != nil {
		return plandomain.Limits{}, err
	}
	if plan == nil {
		plan, err = s.repo.FindByCode(ctx, s.db, plandomain.DefaultPlanCode)
		if err != nil {
			return plandomain.Limits{}, err
		}
		if plan == nil {
			return plandomain.Limits{}, plandomain.ErrPlanNotFound
		}
	}

	return plan.Limits(), nil
}
