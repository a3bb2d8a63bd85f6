package testutil

import (
	"fmt"
	"testing"
	"time"

	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SeedProduct stores an active product priced at price.
func SeedProduct(t *testing.T, db *gorm.DB, node *snowflake.Node, name string, price string) *shopdomain.Product {
	t.Helper()
	now := time.Now().UTC()
	category := shopdomain.Category{
		ID:        node.Generate().Int64(),
		Name:      "cat-" + name,
		Slug:      fmt.Sprintf("cat-%d", node.Generate().Int64()),
		Active:    true,
		CreatedAt: now,
	}
	require.NoError(t, db.Create(&category).Error)

	product := shopdomain.Product{
		ID:         node.Generate().Int64(),
		Name:       name,
		Slug:       fmt.Sprintf("%s-%d", name, node.Generate().Int64()),
		CategoryID: category.ID,
		Price:      decimal.RequireFromString(price),
		Status:     shopdomain.ProductActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

// SeedOrder stores a pending order with one line of product.
func SeedOrder(t *testing.T, db *gorm.DB, node *snowflake.Node, product *shopdomain.Product, quantity int) *shopdomain.Order {
	t.Helper()
	now := time.Now().UTC()
	orderID := node.Generate().Int64()
	line := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	order := shopdomain.Order{
		ID:                   orderID,
		OrderNumber:          fmt.Sprintf("BLZ%08d", orderID%100000000),
		CustomerEmail:        "awa@example.com",
		CustomerPhone:        "+2250700000000",
		CustomerFirstName:    "Awa",
		CustomerLastName:     "Kone",
		ShippingAddressLine1: "Rue 12",
		ShippingCity:         "Abidjan",
		ShippingCountry:      "CI",
		Subtotal:             line,
		ShippingCost:         decimal.Zero,
		TaxAmount:            decimal.Zero,
		TotalAmount:          line,
		Status:               shopdomain.OrderPending,
		PaymentStatus:        shopdomain.PaymentPending,
		CreatedAt:            now,
		UpdatedAt:            now,
		Items: []shopdomain.OrderItem{{
			ID:          node.Generate().Int64(),
			OrderID:     orderID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    quantity,
			TotalPrice:  line,
		}},
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}

// ReloadOrder reads the order back with its items.
func ReloadOrder(t *testing.T, db *gorm.DB, id int64) *shopdomain.Order {
	t.Helper()
	var order shopdomain.Order
	require.NoError(t, db.Preload("Items").First(&order, "id = ?", id).Error)
	return &order
}
