package migration

import (
	"github.com/blizzgame/marketplace/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		if err := Apply(conn); err != nil {
			return err
		}
		return seed.EnsureDefaultCategory(conn)
	}),
)
