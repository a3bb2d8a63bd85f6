package shop

import (
	"github.com/blizzgame/marketplace/internal/shop/repository"
	"github.com/blizzgame/marketplace/internal/shop/service"
	"go.uber.org/fx"
)

var Module = fx.Module("shop.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
