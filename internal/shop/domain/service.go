package domain

import (
	"context"
	"errors"
)

type Service interface {
	AddCartItem(ctx context.Context, req AddCartItemRequest) (*Cart, error)
	Checkout(ctx context.Context, req CheckoutRequest) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	Countries(ctx context.Context) []Country
}

type AddCartItemRequest struct {
	CartID    string `json:"cart_id"`
	UserID    *int64 `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Customer struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ShippingAddress struct {
	Line1      string `json:"address_line1"`
	Line2      string `json:"address_line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CheckoutRequest struct {
	CartID   string          `json:"cart_id"`
	UserID   *int64          `json:"user_id"`
	Customer Customer        `json:"customer"`
	Shipping ShippingAddress `json:"shipping"`
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidShipping      = errors.New("invalid_shipping")
	ErrCartNotFound         = errors.New("cart_not_found")
	ErrCartEmpty            = errors.New("cart_empty")
	ErrProductNotFound      = errors.New("product_not_found")
	ErrProductUnavailable   = errors.New("product_unavailable")
	ErrOrderNotFound        = errors.New("order_not_found")
	ErrOrderNumberExhausted = errors.New("order_number_exhausted")
)
