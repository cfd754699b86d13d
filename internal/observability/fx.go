package observability

import (
	"github.com/inlethq/inlet/internal/config"
	"github.com/inlethq/inlet/internal/observability/metrics"
	"go.uber.org/fx"
)

func NewMetrics(cfg config.Config) *metrics.Metrics {
	return metrics.Default(metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})
}

var Module = fx.Module("observability",
	fx.Provide(NewMetrics),
)
