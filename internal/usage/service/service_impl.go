package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/inlethq/inlet/internal/clock"
	plandomain "github.com/inlethq/inlet/internal/plan/domain"
	usagedomain "github.com/inlethq/inlet/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    usagedomain.Repository
	PlanSvc plandomain.Service
	Clock   clock.Clock
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    usagedomain.Repository
	planSvc plandomain.Service
	clock   clock.Clock
}

func New(p Params) usagedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usage.service"),
		repo:    p.Repo,
		planSvc: p.PlanSvc,
		clock:   p.Clock,
	}
}

func (s *Service) Current(ctx context.Context, tenantID snowflake.ID) (*usagedomain.Snapshot, error) {
	if tenantID == 0 {
		return nil, usagedomain.ErrInvalidTenant
	}

	now := s.clock.Now()
	period := usagedomain.MonthKey(now)

	limits, err := s.planSvc.LimitsFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.Find(ctx, s.db, tenantID, period)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &usagedomain.UsageRecord{TenantID: tenantID, Period: period}
	}

	snapshot := &usagedomain.Snapshot{
		TenantID:       tenantID.String(),
		Period:         period,
		PlanCode:       limits.PlanCode,
		DaysUntilReset: usagedomain.DaysUntilReset(now),
		Requests:       counterUsage(record.RequestCount, limits.MonthlyRequests),
		WebhookCalls:   counterUsage(record.WebhookCalls, limits.MonthlyWebhooks),
		AIExecutions:   counterUsage(record.AIExecutions, limits.MonthlyAI),
		StoredBytes:    counterUsage(record.StoredBytes, limits.MaxStorageBytes),
	}

	for limitType, usage := range map[string]usagedomain.CounterUsage{
		"requests":      snapshot.Requests,
		"webhook_calls": snapshot.WebhookCalls,
		"ai_executions": snapshot.AIExecutions,
		"storage":       snapshot.StoredBytes,
	} {
		if usage.PercentUsed >= usagedomain.WarningThresholdPercent {
			snapshot.Warnings = append(snapshot.Warnings, usagedomain.UsageWarning{
				LimitType:   limitType,
				PercentUsed: usage.PercentUsed,
			})
		}
	}

	return snapshot, nil
}

func counterUsage(used, limit int64) usagedomain.CounterUsage {
	usage := usagedomain.CounterUsage{Used: used, Limit: limit}
	if limit > 0 {
		usage.PercentUsed = float64(used) / float64(limit) * 100
	}
	return usage
}
