package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	commercedomain "github.com/blizzgame/marketplace/internal/commerce/domain"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	reputationdomain "github.com/blizzgame/marketplace/internal/reputation/domain"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the versioned postgres schema.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}

// Models lists every table the service owns.
func Models() []any {
	return []any{
		&reputationdomain.SellerStats{},
		&reputationdomain.SellerRating{},
		&shopdomain.Category{},
		&shopdomain.Product{},
		&shopdomain.Cart{},
		&shopdomain.CartItem{},
		&shopdomain.Order{},
		&shopdomain.OrderItem{},
		&paymentdomain.Transaction{},
		&commercedomain.WebhookEvent{},
	}
}

// AutoMigrate builds the schema from the models. Used for sqlite and mysql,
// which the versioned SQL does not target.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	return db.AutoMigrate(Models()...)
}

// Apply picks the strategy matching the connected dialect.
func Apply(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return AutoMigrate(db)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
