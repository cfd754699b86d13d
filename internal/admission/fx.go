package admission

import (
	"github.com/inlethq/inlet/internal/admission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("admission.service",
	fx.Provide(service.New),
)
