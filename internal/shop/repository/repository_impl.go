package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/blizzgame/marketplace/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func first[T any](q *gorm.DB) (*T, error) {
	var out T
	err := q.First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repo) FindProduct(ctx context.Context, conn *gorm.DB, id int64) (*domain.Product, error) {
	return first[domain.Product](conn.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindProductByRemoteID(ctx context.Context, conn *gorm.DB, remoteID string) (*domain.Product, error) {
	if remoteID == "" {
		return nil, nil
	}
	return first[domain.Product](conn.WithContext(ctx).Where("remote_product_id = ?", remoteID))
}

func (r *repo) SlugTaken(ctx context.Context, conn *gorm.DB, slug string, exceptID int64) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.Product{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) SaveProduct(ctx context.Context, conn *gorm.DB, product *domain.Product) error {
	return conn.WithContext(ctx).Save(product).Error
}

func (r *repo) SetProductVariant(ctx context.Context, conn *gorm.DB, productID int64, variantID string) error {
	return conn.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"remote_variant_id": variantID, "updated_at": time.Now().UTC()}).Error
}

// FindOrCreateCategory inserts the category unless its name or slug exists
// and returns the stored row.
func (r *repo) FindOrCreateCategory(ctx context.Context, conn *gorm.DB, category *domain.Category) (*domain.Category, error) {
	if err := conn.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(category).Error; err != nil {
		return nil, err
	}
	return first[domain.Category](conn.WithContext(ctx).Where("name = ? OR slug = ?", category.Name, category.Slug).Order("id ASC"))
}

func (r *repo) FindCart(ctx context.Context, conn *gorm.DB, id int64) (*domain.Cart, error) {
	return first[domain.Cart](conn.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC, id ASC") }).
		Where("id = ?", id))
}

func (r *repo) CreateCart(ctx context.Context, conn *gorm.DB, cart *domain.Cart) error {
	return conn.WithContext(ctx).Omit("Items").Create(cart).Error
}

// UpsertCartItem adds the quantity to an existing line for the same product.
func (r *repo) UpsertCartItem(ctx context.Context, conn *gorm.DB, item *domain.CartItem) error {
	return conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("shop_cart_items.quantity + ?", item.Quantity),
				"unit_price": item.UnitPrice,
			}),
		}).
		Create(item).Error
}

func (r *repo) ClearCart(ctx context.Context, conn *gorm.DB, cartID int64) error {
	return conn.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&domain.CartItem{}).Error
}

func (r *repo) OrderNumberExists(ctx context.Context, conn *gorm.DB, number string) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Model(&domain.Order{}).Where("order_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *repo) CreateOrder(ctx context.Context, conn *gorm.DB, order *domain.Order) error {
	return conn.WithContext(ctx).Create(order).Error
}

func (r *repo) FindOrder(ctx context.Context, conn *gorm.DB, id int64) (*domain.Order, error) {
	return first[domain.Order](conn.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		Where("id = ?", id))
}

func (r *repo) LockOrder(ctx context.Context, conn *gorm.DB, id int64) (*domain.Order, error) {
	return first[domain.Order](db.ForUpdate(conn.WithContext(ctx)).Where("id = ?", id))
}

func (r *repo) LockOrderByRemoteID(ctx context.Context, conn *gorm.DB, remoteID string) (*domain.Order, error) {
	if remoteID == "" {
		return nil, nil
	}
	return first[domain.Order](db.ForUpdate(conn.WithContext(ctx)).Where("remote_order_id = ?", remoteID))
}

func (r *repo) SaveOrder(ctx context.Context, conn *gorm.DB, order *domain.Order) error {
	return conn.WithContext(ctx).Omit("Items").Save(order).Error
}

func (r *repo) SetOrderItemRemoteLine(ctx context.Context, conn *gorm.DB, itemID int64, lineID string) error {
	return conn.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("id = ?", itemID).
		Update("remote_line_item_id", lineID).Error
}
