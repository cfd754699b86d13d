package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	admissiondomain "github.com/inlethq/inlet/internal/admission/domain"
	"github.com/inlethq/inlet/internal/clock"
	endpointdomain "github.com/inlethq/inlet/internal/endpoint/domain"
	"github.com/inlethq/inlet/internal/ingest/domain"
	"github.com/inlethq/inlet/internal/ratelimit"
	"github.com/inlethq/inlet/internal/webhook/delivery"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Endpoints  endpointdomain.Repository
	Admission  admissiondomain.Service
	Dispatcher *delivery.Dispatcher
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	endpoints  endpointdomain.Repository
	admission  admissiondomain.Service
	dispatcher *delivery.Dispatcher
}

func New(p Params) domain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("ingest.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		endpoints:  p.Endpoints,
		admission:  p.Admission,
		dispatcher: p.Dispatcher,
	}
}

func (s *service) Ingest(ctx context.Context, input domain.Input) (*domain.Result, error) {
	endpoint, err := s.endpoints.FindByPath(ctx, s.db, input.Path)
	if err != nil {
		return nil, err
	}
	if endpoint == nil {
		return nil, domain.ErrEndpointNotFound
	}
	if input.Data == nil {
		return nil, domain.ErrInvalidPayload
	}

	decision, err := s.admission.CheckAndReserve(ctx, endpoint.TenantID, input.SizeBytes, ratelimit.KeyForTenant(endpoint.TenantID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return &domain.Result{Decision: decision}, nil
	}

	data, err := json.Marshal(input.Data)
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	name := input.EventName
	if name == "" {
		name = domain.DefaultEventName
	}

	now := s.clock.Now()
	event := &domain.Event{
		ID:         s.genID.Generate(),
		TenantID:   endpoint.TenantID,
		EndpointID: endpoint.ID,
		Name:       name,
		Category:   input.Category,
		Data:       data,
		SizeBytes:  input.SizeBytes,
		RequestID:  input.RequestID,
		SourceIP:   input.SourceIP,
		UserAgent:  input.UserAgent,
		CreatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, event); err != nil {
		return nil, err
	}

	s.dispatch(ctx, event, endpoint, input)

	return &domain.Result{
		Decision: decision,
		Receipt: &domain.Receipt{
			EventID:    event.ID.String(),
			Event:      event.Name,
			EndpointID: endpoint.ID.String(),
			ReceivedAt: now.UTC().Format(time.RFC3339),
		},
	}, nil
}

// dispatch starts webhook fan-out. Delivery failures never fail the
// ingestion that triggered them.
func (s *service) dispatch(ctx context.Context, event *domain.Event, endpoint *endpointdomain.Endpoint, input domain.Input) {
	deliveryEvent := webhookdomain.Event{
		ID:         event.ID,
		TenantID:   event.TenantID,
		EndpointID: event.EndpointID,
		Name:       event.Name,
		Category:   event.Category,
		Data:       input.Data,
	}
	meta := webhookdomain.Metadata{
		Timestamp: event.CreatedAt.UTC().Format(time.RFC3339),
		RequestID: input.RequestID,
		SourceIP:  input.SourceIP,
		UserAgent: input.UserAgent,
	}
	if err := s.dispatcher.DispatchEvent(ctx, deliveryEvent, endpoint.Summary(), meta); err != nil {
		s.log.Error("webhook dispatch failed",
			zap.Error(err), zap.String("event", event.ID.String()))
	}
}
