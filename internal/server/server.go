package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/inlethq/inlet/internal/admission"
	"github.com/inlethq/inlet/internal/clock"
	"github.com/inlethq/inlet/internal/config"
	"github.com/inlethq/inlet/internal/endpoint"
	"github.com/inlethq/inlet/internal/ingest"
	ingestdomain "github.com/inlethq/inlet/internal/ingest/domain"
	"github.com/inlethq/inlet/internal/observability"
	"github.com/inlethq/inlet/internal/plan"
	"github.com/inlethq/inlet/internal/ratelimit"
	"github.com/inlethq/inlet/internal/usage"
	usagedomain "github.com/inlethq/inlet/internal/usage/domain"
	"github.com/inlethq/inlet/internal/webhook"
	webhookdomain "github.com/inlethq/inlet/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	observability.Module,
	ratelimit.Module,
	plan.Module,
	usage.Module,
	admission.Module,
	endpoint.Module,
	webhook.Module,
	ingest.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	clock      clock.Clock
	window     ratelimit.Store
	ingestSvc  ingestdomain.Service
	usageSvc   usagedomain.Service
	webhookSvc webhookdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Clock      clock.Clock
	Window     ratelimit.Store
	IngestSvc  ingestdomain.Service
	UsageSvc   usagedomain.Service
	WebhookSvc webhookdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		clock:      p.Clock,
		window:     p.Window,
		ingestSvc:  p.IngestSvc,
		usageSvc:   p.UsageSvc,
		webhookSvc: p.WebhookSvc,
	}

	svc.registerIngestRoutes()
	svc.registerAPIRoutes()

	return svc
}

// registerIngestRoutes mounts the public ingestion surface. The tenant is
// resolved from the endpoint's owner, not from a header, because senders are
// external systems configured with nothing but the endpoint URL.
func (s *Server) registerIngestRoutes() {
	s.engine.POST("/v1/ingest/*path", s.IPRateLimit(), s.IngestEvent)
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", TenantContext())
	v1.GET("/usage", s.GetUsage)
	v1.GET("/webhooks/:id/deliveries", s.ListWebhookDeliveries)
	v1.GET("/webhooks/:id/stats", s.GetWebhookStats)
}
