package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/commerce"
	commercedomain "github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/events"
	"github.com/blizzgame/marketplace/internal/migration"
	"github.com/blizzgame/marketplace/internal/observability"
	paymentrepository "github.com/blizzgame/marketplace/internal/payment/repository"
	shoprepository "github.com/blizzgame/marketplace/internal/shop/repository"
	"github.com/blizzgame/marketplace/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// catalogsync imports the remote catalog once and exits.
func main() {
	limit := flag.Int("limit", 250, "maximum number of remote products to import")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline for the import")
	flag.Parse()

	exitCode := 0
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		events.Module,
		fx.Provide(shoprepository.Provide),
		fx.Provide(paymentrepository.Provide),
		commerce.Module,

		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, svc commercedomain.Service, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						ctx, cancel := context.WithTimeout(context.Background(), *timeout)
						defer cancel()

						res, err := svc.SyncCatalog(ctx, *limit)
						if err != nil {
							log.Error("catalog sync failed", zap.Error(err))
							exitCode = 1
						} else {
							log.Info("catalog sync finished",
								zap.Int("fetched", res.Fetched),
								zap.Int("created", res.Created),
								zap.Int("updated", res.Updated),
								zap.Int("failed", res.Failed),
							)
						}
						_ = shutdowner.Shutdown(fx.ExitCode(exitCode))
					}()
					return nil
				},
			})
		}),
	)
	app.Run()
	os.Exit(exitCode)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
