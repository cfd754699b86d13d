package endpoint

import (
	"github.com/inlethq/inlet/internal/endpoint/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("endpoint",
	fx.Provide(repository.Provide),
)
