package webhook

import (
	"github.com/inlethq/inlet/internal/webhook/delivery"
	"github.com/inlethq/inlet/internal/webhook/repository"
	"github.com/inlethq/inlet/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(delivery.NewExecutor),
	fx.Provide(delivery.New),
	fx.Provide(service.New),
)
