package plan

import (
	"github.com/inlethq/inlet/internal/plan/repository"
	"github.com/inlethq/inlet/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
