package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/blizzgame/marketplace/internal/cache"
	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/commerce/shopify"
	"github.com/blizzgame/marketplace/internal/events"
	"github.com/blizzgame/marketplace/internal/observability/logger"
	obsmetrics "github.com/blizzgame/marketplace/internal/observability/metrics"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	ShopRepo    shopdomain.Repository
	PaymentRepo paymentdomain.Repository
	Platform    domain.Platform
	Verifier    domain.SignatureVerifier
	Variants    cache.VariantCache  `optional:"true"`
	Publisher   events.Publisher    `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
	Clock       clock.Clock         `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	shopRepo    shopdomain.Repository
	paymentRepo paymentdomain.Repository
	platform    domain.Platform
	verifier    domain.SignatureVerifier
	variants    cache.VariantCache
	publisher   events.Publisher
	obsMetrics  *obsmetrics.Metrics
	clock       clock.Clock
}

func New(p Params) domain.Service {
	variants := p.Variants
	if variants == nil {
		variants = cache.NewVariantCache()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("commerce.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		shopRepo:    p.ShopRepo,
		paymentRepo: p.PaymentRepo,
		platform:    p.Platform,
		verifier:    p.Verifier,
		variants:    variants,
		publisher:   p.Publisher,
		obsMetrics:  p.ObsMetrics,
		clock:       clk,
	}
}

// CreateRemoteOrder mirrors a paid order on the commerce platform and marks
// it paid there. Calling it again for an order that already has a remote id
// returns that id without touching the platform.
func (s *Service) CreateRemoteOrder(ctx context.Context, orderID int64) (string, error) {
	log := logger.WithContext(ctx, s.log).With(zap.Int64("order_id", orderID))

	order, err := s.shopRepo.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", shopdomain.ErrOrderNotFound
	}
	if !order.IsPaid() {
		return "", domain.ErrOrderNotPaid
	}
	if order.RemoteOrderID != "" {
		s.obsMetrics.RecordRemoteOrder(ctx, "existing")
		return order.RemoteOrderID, nil
	}

	lines := make([]shopify.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, s.lineItem(ctx, item))
	}

	address := &shopify.Address{
		FirstName: order.CustomerFirstName,
		LastName:  order.CustomerLastName,
		Address1:  order.ShippingAddressLine1,
		Address2:  order.ShippingAddressLine2,
		City:      order.ShippingCity,
		Province:  order.ShippingState,
		Country:   order.ShippingCountry,
		Zip:       order.ShippingPostalCode,
		Phone:     order.CustomerPhone,
	}
	remote, err := s.platform.CreateOrder(ctx, shopify.OrderInput{
		Email:           order.CustomerEmail,
		Phone:           order.CustomerPhone,
		LineItems:       lines,
		ShippingAddress: address,
		BillingAddress:  address,
		FinancialStatus: "pending",
		Tags:            domain.OrderTags,
		Note:            "Commande BLIZZ #" + order.OrderNumber,
		SourceName:      domain.SourceName,
	})
	if err != nil {
		s.obsMetrics.RecordRemoteOrder(ctx, "failed")
		return "", err
	}
	remoteID := remote.ID.String()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.shopRepo.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return shopdomain.ErrOrderNotFound
		}
		if locked.RemoteOrderID != "" && locked.RemoteOrderID != remoteID {
			log.Warn("order already linked to another remote order",
				zap.String("existing", locked.RemoteOrderID),
				zap.String("created", remoteID),
			)
			remoteID = locked.RemoteOrderID
			return nil
		}
		locked.RemoteOrderID = remoteID
		locked.RemoteOrderNumber = remote.OrderNumber.String()
		locked.UpdatedAt = s.clock.Now()
		if err := s.shopRepo.SaveOrder(ctx, tx, locked); err != nil {
			return err
		}
		for i, item := range order.Items {
			if i >= len(remote.LineItems) {
				break
			}
			if err := s.shopRepo.SetOrderItemRemoteLine(ctx, tx, item.ID, remote.LineItems[i].ID.String()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordRemoteOrder(ctx, "failed")
		return "", err
	}

	s.obsMetrics.RecordRemoteOrder(ctx, "created")
	log.Info("remote order created",
		zap.String("remote_order_id", remoteID),
		zap.String("remote_order_number", remote.OrderNumber.String()),
	)
	events.Emit(ctx, s.publisher, events.TypeOrderRemoteCreated, strconv.FormatInt(orderID, 10), map[string]any{
		"order_id":        strconv.FormatInt(orderID, 10),
		"remote_order_id": remoteID,
	})

	if err := s.MarkRemotePaid(ctx, orderID); err != nil {
		log.Error("mark remote order paid failed", zap.String("remote_order_id", remoteID), zap.Error(err))
	}
	return remoteID, nil
}

func (s *Service) MarkRemotePaid(ctx context.Context, orderID int64) error {
	order, err := s.shopRepo.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return shopdomain.ErrOrderNotFound
	}
	if order.RemoteOrderID == "" {
		return domain.ErrNoRemoteOrder
	}
	if !order.IsPaid() {
		return domain.ErrOrderNotPaid
	}
	_, err = s.platform.UpdateOrder(ctx, order.RemoteOrderID, shopify.OrderInput{
		FinancialStatus: "paid",
		Tags:            domain.PaidOrderTags,
	})
	return err
}

// lineItem prefers the stored variant, then the remote product's first
// variant, and falls back to a custom line carrying title and price.
func (s *Service) lineItem(ctx context.Context, item shopdomain.OrderItem) shopify.LineItem {
	line := shopify.LineItem{
		Quantity: item.Quantity,
		Price:    item.UnitPrice.StringFixed(2),
	}
	product, err := s.shopRepo.FindProduct(ctx, s.db, item.ProductID)
	if err != nil || product == nil {
		line.Title = item.ProductName
		return line
	}
	if id := s.variantFor(ctx, product); id != 0 {
		line.VariantID = &id
		return line
	}
	line.Title = item.ProductName
	return line
}

func (s *Service) variantFor(ctx context.Context, product *shopdomain.Product) int64 {
	if id := parseRemoteID(product.RemoteVariantID); id != 0 {
		return id
	}
	remoteID := strings.TrimSpace(product.RemoteProductID)
	if remoteID == "" {
		return 0
	}
	if cached, ok := s.variants.GetVariant(remoteID); ok {
		return parseRemoteID(cached)
	}

	remote, err := s.platform.GetProduct(ctx, remoteID)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("remote product lookup failed",
			zap.String("remote_product_id", remoteID),
			zap.Error(err),
		)
		return 0
	}
	variant, ok := remote.FirstVariant()
	if !ok || variant.ID == "" {
		return 0
	}
	s.variants.SetVariant(remoteID, variant.ID.String())
	if err := s.shopRepo.SetProductVariant(ctx, s.db, product.ID, variant.ID.String()); err != nil {
		logger.WithContext(ctx, s.log).Warn("persist variant failed", zap.Int64("product_id", product.ID), zap.Error(err))
	}
	return parseRemoteID(variant.ID.String())
}

func parseRemoteID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
