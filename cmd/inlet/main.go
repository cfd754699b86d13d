package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/inlethq/inlet/internal/clock"
	"github.com/inlethq/inlet/internal/config"
	"github.com/inlethq/inlet/internal/logger"
	"github.com/inlethq/inlet/internal/migration"
	"github.com/inlethq/inlet/internal/server"
	"github.com/inlethq/inlet/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
