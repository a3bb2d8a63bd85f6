package service

import (
	"context"
	"strings"

	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/observability/logger"
	"github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const orderNumberAttempts = 10

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock

	newOrderNumber func() string
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("shop.service"),
		genID:          p.GenID,
		repo:           p.Repo,
		clock:          clk,
		newOrderNumber: domain.NewOrderNumber,
	}
}

func (s *Service) AddCartItem(ctx context.Context, req domain.AddCartItemRequest) (*domain.Cart, error) {
	productID, err := parseID(req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var cartID int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.repo.FindProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		if product.Status != domain.ProductActive {
			return domain.ErrProductUnavailable
		}

		now := s.clock.Now()
		if strings.TrimSpace(req.CartID) == "" {
			cart := &domain.Cart{
				ID:        s.genID.Generate().Int64(),
				UserID:    req.UserID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.CreateCart(ctx, tx, cart); err != nil {
				return err
			}
			cartID = cart.ID
		} else {
			id, err := parseID(req.CartID)
			if err != nil {
				return err
			}
			cart, err := s.repo.FindCart(ctx, tx, id)
			if err != nil {
				return err
			}
			if cart == nil {
				return domain.ErrCartNotFound
			}
			cartID = cart.ID
		}

		return s.repo.UpsertCartItem(ctx, tx, &domain.CartItem{
			ID:        s.genID.Generate().Int64(),
			CartID:    cartID,
			ProductID: product.ID,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindCart(ctx, s.db, cartID)
}

// Checkout turns the cart into a pending order and empties it.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	cartID, err := parseID(req.CartID)
	if err != nil {
		return nil, err
	}
	customer, err := normalizeCustomer(req.Customer)
	if err != nil {
		return nil, err
	}
	shipping, err := normalizeShipping(req.Shipping)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.repo.FindCart(ctx, tx, cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrCartNotFound
		}
		if len(cart.Items) == 0 {
			return domain.ErrCartEmpty
		}

		number, err := s.uniqueOrderNumber(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		order = &domain.Order{
			ID:                   s.genID.Generate().Int64(),
			OrderNumber:          number,
			UserID:               firstUserID(req.UserID, cart.UserID),
			CustomerEmail:        customer.Email,
			CustomerPhone:        customer.Phone,
			CustomerFirstName:    customer.FirstName,
			CustomerLastName:     customer.LastName,
			ShippingAddressLine1: shipping.Line1,
			ShippingAddressLine2: shipping.Line2,
			ShippingCity:         shipping.City,
			ShippingState:        shipping.State,
			ShippingPostalCode:   shipping.PostalCode,
			ShippingCountry:      shipping.Country,
			ShippingCost:         decimal.Zero,
			TaxAmount:            decimal.Zero,
			Status:               domain.OrderPending,
			PaymentStatus:        domain.PaymentPending,
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		subtotal := decimal.Zero
		for _, item := range cart.Items {
			product, err := s.repo.FindProduct(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return domain.ErrProductNotFound
			}
			line := item.Total()
			subtotal = subtotal.Add(line)
			order.Items = append(order.Items, domain.OrderItem{
				ID:          s.genID.Generate().Int64(),
				OrderID:     order.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				UnitPrice:   item.UnitPrice,
				Quantity:    item.Quantity,
				TotalPrice:  line,
			})
		}
		order.Subtotal = subtotal
		order.TotalAmount = subtotal.Add(order.ShippingCost).Add(order.TaxAmount)

		if err := s.repo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		return s.repo.ClearCart(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) Countries(context.Context) []domain.Country {
	return domain.SupportedCountries()
}

func (s *Service) uniqueOrderNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	for range orderNumberAttempts {
		number := s.newOrderNumber()
		exists, err := s.repo.OrderNumberExists(ctx, tx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", domain.ErrOrderNumberExhausted
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id.Int64() <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func firstUserID(ids ...*int64) *int64 {
	for _, id := range ids {
		if id != nil {
			return id
		}
	}
	return nil
}

func normalizeCustomer(c domain.Customer) (domain.Customer, error) {
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	if c.Email == "" || !strings.Contains(c.Email, "@") || c.Phone == "" || c.FirstName == "" {
		return c, domain.ErrInvalidCustomer
	}
	return c, nil
}

func normalizeShipping(a domain.ShippingAddress) (domain.ShippingAddress, error) {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)
	if a.Line1 == "" || a.City == "" || a.Country == "" {
		return a, domain.ErrInvalidShipping
	}
	return a, nil
}
