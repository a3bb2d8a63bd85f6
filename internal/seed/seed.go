package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	commercedomain "github.com/blizzgame/marketplace/internal/commerce/domain"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// EnsureDefaultCategory seeds the fallback category used by catalog imports
// that carry no product type.
func EnsureDefaultCategory(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureCategoryTx(ctx, tx, node, commercedomain.DefaultCategory)
		return err
	})
}

func ensureCategoryTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name string) (shopdomain.Category, error) {
	var category shopdomain.Category
	categorySlug := slug.Make(name)
	err := tx.WithContext(ctx).Where("name = ? OR slug = ?", name, categorySlug).First(&category).Error
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return category, err
	}
	category = shopdomain.Category{
		ID:        node.Generate().Int64(),
		Name:      name,
		Slug:      categorySlug,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&category).Error; err != nil {
		return category, err
	}
	return category, nil
}
