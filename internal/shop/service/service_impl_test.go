package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/blizzgame/marketplace/internal/shop/repository"
	"github.com/blizzgame/marketplace/internal/testutil"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	node := testutil.NewNode(t)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, db, node
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func validCheckout(cartID int64) domain.CheckoutRequest {
	return domain.CheckoutRequest{
		CartID: idString(cartID),
		Customer: domain.Customer{
			Email:     " awa@example.com ",
			Phone:     "+2250700000000",
			FirstName: "Awa",
			LastName:  "Kone",
		},
		Shipping: domain.ShippingAddress{
			Line1:   "Rue 12",
			City:    "Abidjan",
			Country: "CI",
		},
	}
}

func TestAddCartItemMergesQuantities(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, node, "manette", "15000")

	cart, err := svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: idString(product.ID), Quantity: 1})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	cart, err = svc.AddCartItem(ctx, domain.AddCartItemRequest{
		CartID:    idString(cart.ID),
		ProductID: idString(product.ID),
		Quantity:  2,
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestAddCartItemValidation(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, node, "casque", "9000")

	_, err := svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: "abc", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: idString(product.ID), Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: idString(node.Generate().Int64()), Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.AddCartItem(ctx, domain.AddCartItemRequest{
		CartID:    idString(node.Generate().Int64()),
		ProductID: idString(product.ID),
		Quantity:  1,
	})
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", product.ID).Update("status", domain.ProductInactive).Error)
	_, err = svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: idString(product.ID), Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	pad := testutil.SeedProduct(t, db, node, "manette", "15000")
	game := testutil.SeedProduct(t, db, node, "jeu", "25000.50")

	cart, err := svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: idString(pad.ID), Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddCartItem(ctx, domain.AddCartItemRequest{CartID: idString(cart.ID), ProductID: idString(game.ID), Quantity: 1})
	require.NoError(t, err)

	order, err := svc.Checkout(ctx, validCheckout(cart.ID))
	require.NoError(t, err)
	assert.Regexp(t, `^BLZ\d{8}$`, order.OrderNumber)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
	assert.Equal(t, "55000.50", order.Subtotal.StringFixed(2))
	assert.True(t, order.TotalAmount.Equal(order.Subtotal))
	assert.Equal(t, "awa@example.com", order.CustomerEmail)
	assert.Len(t, order.Items, 2)

	stored, err := svc.GetOrder(ctx, idString(order.ID))
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	emptied, err := repository.Provide().FindCart(ctx, db, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, emptied.Items)

	_, err = svc.Checkout(ctx, validCheckout(cart.ID))
	assert.ErrorIs(t, err, domain.ErrCartEmpty)
}

func TestCheckoutValidation(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, node, "manette", "15000")
	cart, err := svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: idString(product.ID), Quantity: 1})
	require.NoError(t, err)

	req := validCheckout(cart.ID)
	req.Customer.Email = "invalid"
	_, err = svc.Checkout(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	req = validCheckout(cart.ID)
	req.Shipping.City = " "
	_, err = svc.Checkout(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidShipping)

	_, err = svc.Checkout(ctx, validCheckout(node.Generate().Int64()))
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestCheckoutRetriesTakenOrderNumbers(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, node, "manette", "15000")
	existing := testutil.SeedOrder(t, db, node, product, 1)

	numbers := []string{existing.OrderNumber, existing.OrderNumber, "BLZ00000042"}
	svc.newOrderNumber = func() string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}

	cart, err := svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: idString(product.ID), Quantity: 1})
	require.NoError(t, err)
	order, err := svc.Checkout(ctx, validCheckout(cart.ID))
	require.NoError(t, err)
	assert.Equal(t, "BLZ00000042", order.OrderNumber)
}

func TestCheckoutGivesUpWhenNumbersExhausted(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, node, "manette", "15000")
	existing := testutil.SeedOrder(t, db, node, product, 1)
	svc.newOrderNumber = func() string { return existing.OrderNumber }

	cart, err := svc.AddCartItem(ctx, domain.AddCartItemRequest{ProductID: idString(product.ID), Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, validCheckout(cart.ID))
	assert.ErrorIs(t, err, domain.ErrOrderNumberExhausted)

	reloaded, err := repository.Provide().FindCart(ctx, db, cart.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 1, "failed checkout keeps the cart")
}

func TestGetOrderNotFound(t *testing.T) {
	svc, _, node := newTestService(t)
	_, err := svc.GetOrder(context.Background(), idString(node.Generate().Int64()))
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.GetOrder(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCountries(t *testing.T) {
	svc, _, _ := newTestService(t)
	countries := svc.Countries(context.Background())
	require.NotEmpty(t, countries)
	assert.Equal(t, "CI", countries[0].Code)
	assert.Equal(t, "XOF", countries[0].Currency)
}
