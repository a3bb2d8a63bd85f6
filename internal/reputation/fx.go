package reputation

import (
	"github.com/blizzgame/marketplace/internal/reputation/repository"
	"github.com/blizzgame/marketplace/internal/reputation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reputation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
