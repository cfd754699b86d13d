package ingest

import (
	"github.com/inlethq/inlet/internal/ingest/repository"
	"github.com/inlethq/inlet/internal/ingest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ingest.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
