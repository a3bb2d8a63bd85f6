package commerce

import (
	"github.com/blizzgame/marketplace/internal/cache"
	"github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/commerce/repository"
	"github.com/blizzgame/marketplace/internal/commerce/service"
	"github.com/blizzgame/marketplace/internal/commerce/shopify"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("commerce.service",
	shopify.Module,
	fx.Provide(cache.NewVariantCache),
	fx.Provide(repository.Provide),
	fx.Provide(func(c *shopify.Client) domain.Platform { return c }),
	fx.Provide(func(v *shopify.Verifier) domain.SignatureVerifier { return v }),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) paymentdomain.RemoteOrderCreator { return s }),
)
