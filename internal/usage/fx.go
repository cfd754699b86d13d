package usage

import (
	"github.com/inlethq/inlet/internal/usage/repository"
	"github.com/inlethq/inlet/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
