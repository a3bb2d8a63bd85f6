package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null;uniqueIndex"`
	Slug      string    `json:"slug" gorm:"type:varchar(160);not null;uniqueIndex"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (Category) TableName() string { return "shop_categories" }

type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductOutOfStock   ProductStatus = "out_of_stock"
	ProductDiscontinued ProductStatus = "discontinued"
)

type Product struct {
	ID              int64           `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name            string          `json:"name" gorm:"type:varchar(255);not null"`
	Slug            string          `json:"slug" gorm:"type:varchar(255);not null;uniqueIndex"`
	CategoryID      int64           `json:"category_id" gorm:"not null;index"`
	Description     string          `json:"description" gorm:"type:text"`
	Price           decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	Status          ProductStatus   `json:"status" gorm:"type:varchar(32);not null;default:active"`
	RemoteProductID string          `json:"remote_product_id,omitempty" gorm:"type:varchar(64);index"`
	RemoteVariantID string          `json:"remote_variant_id,omitempty" gorm:"type:varchar(64)"`
	RemoteHandle    string          `json:"remote_handle,omitempty" gorm:"type:varchar(255)"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "shop_products" }

type Cart struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	UserID    *int64     `json:"user_id,omitempty" gorm:"index"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"not null"`
}

func (Cart) TableName() string { return "shop_carts" }

type CartItem struct {
	ID        int64           `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CartID    int64           `json:"cart_id" gorm:"not null;uniqueIndex:ux_shop_cart_items_cart_product,priority:1"`
	ProductID int64           `json:"product_id" gorm:"not null;uniqueIndex:ux_shop_cart_items_cart_product,priority:2"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
}

func (CartItem) TableName() string { return "shop_cart_items" }

func (i CartItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                      int64           `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrderNumber             string          `json:"order_number" gorm:"type:varchar(16);not null;uniqueIndex"`
	UserID                  *int64          `json:"user_id,omitempty" gorm:"index"`
	CustomerEmail           string          `json:"customer_email" gorm:"type:varchar(255);not null"`
	CustomerPhone           string          `json:"customer_phone" gorm:"type:varchar(32);not null"`
	CustomerFirstName       string          `json:"customer_first_name" gorm:"type:varchar(100);not null"`
	CustomerLastName        string          `json:"customer_last_name" gorm:"type:varchar(100);not null"`
	ShippingAddressLine1    string          `json:"shipping_address_line1" gorm:"type:varchar(255);not null"`
	ShippingAddressLine2    string          `json:"shipping_address_line2" gorm:"type:varchar(255)"`
	ShippingCity            string          `json:"shipping_city" gorm:"type:varchar(100);not null"`
	ShippingState           string          `json:"shipping_state" gorm:"type:varchar(100)"`
	ShippingPostalCode      string          `json:"shipping_postal_code" gorm:"type:varchar(20)"`
	ShippingCountry         string          `json:"shipping_country" gorm:"type:varchar(100);not null"`
	Subtotal                decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	ShippingCost            decimal.Decimal `json:"shipping_cost" gorm:"type:numeric(12,2);not null;default:0"`
	TaxAmount               decimal.Decimal `json:"tax_amount" gorm:"type:numeric(12,2);not null;default:0"`
	TotalAmount             decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	Status                  OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	PaymentStatus           PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);not null;default:pending"`
	RemoteOrderID           string          `json:"remote_order_id,omitempty" gorm:"type:varchar(64);index"`
	RemoteOrderNumber       string          `json:"remote_order_number,omitempty" gorm:"type:varchar(64)"`
	RemoteFulfillmentStatus string          `json:"remote_fulfillment_status,omitempty" gorm:"type:varchar(32)"`
	Items                   []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt               time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt               time.Time       `json:"updated_at" gorm:"not null"`
	ShippedAt               *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt             *time.Time      `json:"delivered_at,omitempty"`
}

func (Order) TableName() string { return "shop_orders" }

type OrderItem struct {
	ID               int64           `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrderID          int64           `json:"order_id" gorm:"not null;index"`
	ProductID        int64           `json:"product_id" gorm:"not null"`
	ProductName      string          `json:"product_name" gorm:"type:varchar(255);not null"`
	UnitPrice        decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	Quantity         int             `json:"quantity" gorm:"not null"`
	TotalPrice       decimal.Decimal `json:"total_price" gorm:"type:numeric(12,2);not null"`
	RemoteLineItemID string          `json:"remote_line_item_id,omitempty" gorm:"type:varchar(64)"`
}

func (OrderItem) TableName() string { return "shop_order_items" }
