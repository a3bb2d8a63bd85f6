package cinetpay

import "go.uber.org/fx"

var Module = fx.Module("cinetpay",
	fx.Provide(NewClient),
)
