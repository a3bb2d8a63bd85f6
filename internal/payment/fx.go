package payment

import (
	"github.com/blizzgame/marketplace/internal/payment/cinetpay"
	"github.com/blizzgame/marketplace/internal/payment/domain"
	"github.com/blizzgame/marketplace/internal/payment/repository"
	paymentservice "github.com/blizzgame/marketplace/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	cinetpay.Module,
	fx.Provide(repository.Provide),
	fx.Provide(func(c *cinetpay.Client) domain.Gateway { return c }),
	fx.Provide(paymentservice.NewService),
)
