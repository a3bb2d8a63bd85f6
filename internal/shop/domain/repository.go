package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindProduct(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	FindProductByRemoteID(ctx context.Context, db *gorm.DB, remoteID string) (*Product, error)
	SlugTaken(ctx context.Context, db *gorm.DB, slug string, exceptID int64) (bool, error)
	SaveProduct(ctx context.Context, db *gorm.DB, product *Product) error
	SetProductVariant(ctx context.Context, db *gorm.DB, productID int64, variantID string) error
	FindOrCreateCategory(ctx context.Context, db *gorm.DB, category *Category) (*Category, error)

	FindCart(ctx context.Context, db *gorm.DB, id int64) (*Cart, error)
	CreateCart(ctx context.Context, db *gorm.DB, cart *Cart) error
	UpsertCartItem(ctx context.Context, db *gorm.DB, item *CartItem) error
	ClearCart(ctx context.Context, db *gorm.DB, cartID int64) error

	OrderNumberExists(ctx context.Context, db *gorm.DB, number string) (bool, error)
	CreateOrder(ctx context.Context, db *gorm.DB, order *Order) error
	FindOrder(ctx context.Context, db *gorm.DB, id int64) (*Order, error)
	// LockOrder loads the order FOR UPDATE, without items.
	LockOrder(ctx context.Context, db *gorm.DB, id int64) (*Order, error)
	LockOrderByRemoteID(ctx context.Context, db *gorm.DB, remoteID string) (*Order, error)
	SaveOrder(ctx context.Context, db *gorm.DB, order *Order) error
	SetOrderItemRemoteLine(ctx context.Context, db *gorm.DB, itemID int64, lineID string) error
}
