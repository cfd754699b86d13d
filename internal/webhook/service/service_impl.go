package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/inlethq/inlet/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &service{
		db:   p.DB,
		log:  p.Log.Named("webhook.service"),
		repo: p.Repo,
	}
}

func (s *service) Deliveries(ctx context.Context, tenantID, webhookID snowflake.ID, limit int) ([]domain.DeliveryLog, error) {
	if _, err := s.owned(ctx, tenantID, webhookID); err != nil {
		return nil, err
	}
	return s.repo.ListLogs(ctx, s.db, webhookID, limit)
}

func (s *service) Stats(ctx context.Context, tenantID, webhookID snowflake.ID) (*domain.Stats, error) {
	w, err := s.owned(ctx, tenantID, webhookID)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		WebhookID:         w.ID.String(),
		CallsThisPeriod:   w.CallsThisPeriod,
		SuccessfulCalls:   w.SuccessfulCalls,
		FailedCalls:       w.FailedCalls,
		TotalCalls:        w.TotalCalls,
		AvgResponseMs:     w.AvgResponseMs,
		FastestResponseMs: w.FastestResponseMs,
		SlowestResponseMs: w.SlowestResponseMs,
		LastTriggeredAt:   w.LastTriggeredAt,
		LastSuccessAt:     w.LastSuccessAt,
	}
	if w.TotalCalls > 0 {
		stats.SuccessRate = float64(w.SuccessfulCalls) / float64(w.TotalCalls) * 100
	}
	return stats, nil
}

// owned loads a webhook and rejects lookups across tenant boundaries with
// the same error as a missing row.
func (s *service) owned(ctx context.Context, tenantID, webhookID snowflake.ID) (*domain.Webhook, error) {
	w, err := s.repo.FindByID(ctx, s.db, webhookID)
	if err != nil {
		return nil, err
	}
	if w == nil || w.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return w, nil
}
