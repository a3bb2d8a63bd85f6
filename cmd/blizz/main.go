package main

import (
	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/commerce"
	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/events"
	"github.com/blizzgame/marketplace/internal/migration"
	"github.com/blizzgame/marketplace/internal/observability"
	"github.com/blizzgame/marketplace/internal/payment"
	"github.com/blizzgame/marketplace/internal/ratelimit"
	"github.com/blizzgame/marketplace/internal/reputation"
	"github.com/blizzgame/marketplace/internal/scheduler"
	"github.com/blizzgame/marketplace/internal/server"
	"github.com/blizzgame/marketplace/internal/shop"
	"github.com/blizzgame/marketplace/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		events.Module,
		ratelimit.Module,

		// Domains
		shop.Module,
		reputation.Module,
		payment.Module,
		commerce.Module,

		scheduler.Module,
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
