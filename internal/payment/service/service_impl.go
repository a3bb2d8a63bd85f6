package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/events"
	"github.com/blizzgame/marketplace/internal/observability/logger"
	obsmetrics "github.com/blizzgame/marketplace/internal/observability/metrics"
	"github.com/blizzgame/marketplace/internal/payment/cinetpay"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	"github.com/blizzgame/marketplace/internal/ratelimit"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	notificationLockKey = "shop:payment:notify:%s"
	notificationLockTTL = 30 * time.Second
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	GenID       *snowflake.Node
	Repo        paymentdomain.Repository
	ShopRepo    shopdomain.Repository
	Gateway     paymentdomain.Gateway
	RemoteOrder paymentdomain.RemoteOrderCreator    `optional:"true"`
	Locker      ratelimit.Locker                    `optional:"true"`
	Limiter     *ratelimit.PaymentInitiationLimiter `optional:"true"`
	Publisher   events.Publisher                    `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics                 `optional:"true"`
	Clock       clock.Clock                         `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	genID       *snowflake.Node
	repo        paymentdomain.Repository
	shopRepo    shopdomain.Repository
	gateway     paymentdomain.Gateway
	remoteOrder paymentdomain.RemoteOrderCreator
	locker      ratelimit.Locker
	limiter     *ratelimit.PaymentInitiationLimiter
	publisher   events.Publisher
	obsMetrics  *obsmetrics.Metrics
	clock       clock.Clock
}

func NewService(p Params) paymentdomain.Service {
	locker := p.Locker
	if locker == nil {
		locker = ratelimit.NoopLocker{}
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		cfg:         p.Cfg,
		genID:       p.GenID,
		repo:        p.Repo,
		shopRepo:    p.ShopRepo,
		gateway:     p.Gateway,
		remoteOrder: p.RemoteOrder,
		locker:      locker,
		limiter:     p.Limiter,
		publisher:   p.Publisher,
		obsMetrics:  p.ObsMetrics,
		clock:       clk,
	}
}

func (s *Service) InitiatePayment(ctx context.Context, req paymentdomain.InitiatePaymentRequest) (*paymentdomain.InitiatePaymentResponse, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx, s.log).With(zap.Int64("order_id", orderID))

	if ok, retryAfter := s.limiter.Allow(ctx, strconv.FormatInt(orderID, 10)); !ok {
		s.obsMetrics.RecordPaymentInitiation(ctx, "rate_limited")
		return nil, &paymentdomain.RateLimitError{RetryAfter: retryAfter}
	}

	order, err := s.shopRepo.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, shopdomain.ErrOrderNotFound
	}
	if err := checkPayable(order); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == paymentdomain.TransactionCompleted {
		return nil, paymentdomain.ErrOrderAlreadyPaid
	}

	currency := s.cfg.CinetPay.Currency
	if currency == "" {
		currency = shopdomain.DefaultCurrency
	}
	providerTxID := fmt.Sprintf("SHOP_%s_%s", order.OrderNumber, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	customer := mergeCustomer(req, order)

	result, err := s.gateway.Initiate(ctx, cinetpay.InitiateRequest{
		TransactionID:       providerTxID,
		Amount:              order.TotalAmount.IntPart(),
		Currency:            currency,
		Description:         "Commande BLIZZ #" + order.OrderNumber,
		ReturnURL:           fmt.Sprintf("%s/shop/orders/%d/payment/return", s.cfg.BaseURL, order.ID),
		NotifyURL:           s.cfg.BaseURL + "/api/shop/payments/cinetpay/notify",
		CancelURL:           fmt.Sprintf("%s/shop/orders/%d/payment/return?cancelled=1", s.cfg.BaseURL, order.ID),
		CustomerID:          customerID(order),
		CustomerName:        customer.CustomerName,
		CustomerSurname:     customer.CustomerSurname,
		CustomerEmail:       customer.CustomerEmail,
		CustomerPhoneNumber: customer.CustomerPhoneNumber,
		CustomerAddress:     customer.CustomerAddress,
		CustomerCity:        customer.CustomerCity,
		CustomerCountry:     customer.CustomerCountry,
		CustomerState:       customer.CustomerState,
		CustomerZipCode:     customer.CustomerZipCode,
	})
	if err != nil {
		var rejected *cinetpay.RejectionError
		switch {
		case cinetpay.IsTransient(err):
			s.obsMetrics.RecordPaymentInitiation(ctx, "unavailable")
			log.Warn("payment provider unavailable", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", paymentdomain.ErrServiceUnavailable, err)
		case errors.As(err, &rejected):
			s.obsMetrics.RecordPaymentInitiation(ctx, "rejected")
			log.Info("payment initiation rejected", zap.String("code", rejected.Code))
			return nil, err
		default:
			s.obsMetrics.RecordPaymentInitiation(ctx, "error")
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		current, err := s.repo.LockByOrderID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if current != nil && current.Status == paymentdomain.TransactionCompleted {
			return paymentdomain.ErrOrderAlreadyPaid
		}
		locked, err := s.shopRepo.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return shopdomain.ErrOrderNotFound
		}
		if err := checkPayable(locked); err != nil {
			return err
		}
		if locked.ResetForRetry(now) {
			if err := s.shopRepo.SaveOrder(ctx, tx, locked); err != nil {
				return err
			}
			log.Info("order reopened for payment retry")
		}
		if current == nil {
			return s.repo.Create(ctx, tx, &paymentdomain.Transaction{
				ID:                    s.genID.Generate().Int64(),
				OrderID:               orderID,
				ProviderTransactionID: providerTxID,
				PaymentURL:            result.PaymentURL,
				PaymentToken:          result.PaymentToken,
				CustomerName:          customer.CustomerName,
				CustomerSurname:       customer.CustomerSurname,
				CustomerEmail:         customer.CustomerEmail,
				CustomerPhoneNumber:   customer.CustomerPhoneNumber,
				CustomerCountry:       customer.CustomerCountry,
				Amount:                order.TotalAmount,
				Currency:              currency,
				Status:                paymentdomain.TransactionPending,
				CreatedAt:             now,
				UpdatedAt:             now,
			})
		}
		current.ProviderTransactionID = providerTxID
		current.PaymentURL = result.PaymentURL
		current.PaymentToken = result.PaymentToken
		current.CustomerName = customer.CustomerName
		current.CustomerSurname = customer.CustomerSurname
		current.CustomerEmail = customer.CustomerEmail
		current.CustomerPhoneNumber = customer.CustomerPhoneNumber
		current.CustomerCountry = customer.CustomerCountry
		current.Amount = order.TotalAmount
		current.Currency = currency
		current.Status = paymentdomain.TransactionPending
		current.ProviderStatus = ""
		current.UpdatedAt = now
		return s.repo.Save(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPaymentInitiation(ctx, "created")
	log.Info("payment initiated", zap.String("transaction_id", providerTxID))
	return &paymentdomain.InitiatePaymentResponse{
		OrderID:       strconv.FormatInt(orderID, 10),
		TransactionID: providerTxID,
		PaymentURL:    result.PaymentURL,
	}, nil
}

// HandleNotification settles a transaction from the provider's verified
// status. Repeated notifications for the same transaction are harmless and
// only the one that completes it forwards the order.
func (s *Service) HandleNotification(ctx context.Context, providerTxID string) (*paymentdomain.NotificationResult, error) {
	providerTxID = strings.TrimSpace(providerTxID)
	if providerTxID == "" {
		return nil, paymentdomain.ErrMissingTransactionID
	}
	log := logger.WithContext(ctx, s.log).With(zap.String("transaction_id", providerTxID))
	result := &paymentdomain.NotificationResult{TransactionID: providerTxID}

	known, err := s.repo.FindByProviderID(ctx, s.db, providerTxID)
	if err != nil {
		return nil, err
	}
	if known == nil {
		log.Warn("notification for unknown transaction")
		result.Outcome = paymentdomain.OutcomeUnknownTransaction
		s.obsMetrics.RecordPaymentNotification(ctx, "", result.Outcome)
		return result, nil
	}
	if known.Status == paymentdomain.TransactionCompleted {
		result.Outcome = paymentdomain.OutcomeAlreadyCompleted
		s.obsMetrics.RecordPaymentNotification(ctx, cinetpay.StatusAccepted, result.Outcome)
		return result, nil
	}

	check, err := s.gateway.Check(ctx, providerTxID)
	if err != nil {
		if cinetpay.IsTransient(err) {
			log.Warn("payment verification unavailable", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", paymentdomain.ErrServiceUnavailable, err)
		}
		var rejected *cinetpay.RejectionError
		if errors.As(err, &rejected) || errors.Is(err, cinetpay.ErrInvalidResponse) {
			log.Warn("payment verification refused", zap.Error(err))
			if touchErr := s.touchUnverified(ctx, providerTxID, rejected); touchErr != nil {
				return nil, touchErr
			}
			result.Outcome = paymentdomain.OutcomeUnverified
			s.obsMetrics.RecordPaymentNotification(ctx, "", result.Outcome)
			return result, nil
		}
		return nil, err
	}
	result.ProviderStatus = check.PaymentStatus

	lockKey := fmt.Sprintf(notificationLockKey, providerTxID)
	token, acquired, err := s.locker.TryLock(ctx, lockKey, notificationLockTTL)
	if err != nil {
		// The row lock below still serialises writers.
		log.Warn("notification lock unavailable", zap.Error(err))
		acquired = true
	}
	if !acquired {
		return nil, paymentdomain.ErrNotificationInFlight
	}
	defer func() {
		if token == "" {
			return
		}
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			log.Warn("notification lock release failed", zap.Error(err))
		}
	}()

	var order *shopdomain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.repo.LockByProviderID(ctx, tx, providerTxID)
		if err != nil {
			return err
		}
		if txn == nil {
			result.Outcome = paymentdomain.OutcomeUnknownTransaction
			return nil
		}
		if txn.Status == paymentdomain.TransactionCompleted {
			result.Outcome = paymentdomain.OutcomeAlreadyCompleted
			return nil
		}

		order, err = s.shopRepo.LockOrder(ctx, tx, txn.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return shopdomain.ErrOrderNotFound
		}

		now := s.clock.Now()
		txn.ProviderStatus = check.PaymentStatus
		switch check.PaymentStatus {
		case cinetpay.StatusAccepted:
			if !txn.Complete(now) {
				result.Outcome = paymentdomain.OutcomeUnhandled
				return nil
			}
			if !order.MarkPaid(now) {
				log.Warn("order did not accept payment",
					zap.Int64("order_id", order.ID),
					zap.String("order_status", string(order.Status)),
					zap.String("payment_status", string(order.PaymentStatus)),
				)
			}
			result.Outcome = paymentdomain.OutcomeCompleted
		case cinetpay.StatusRefused:
			if !txn.Fail(now) {
				result.Outcome = paymentdomain.OutcomeUnhandled
				return nil
			}
			if !order.MarkPaymentFailed(now) {
				log.Warn("order did not accept payment refusal",
					zap.Int64("order_id", order.ID),
					zap.String("order_status", string(order.Status)),
					zap.String("payment_status", string(order.PaymentStatus)),
				)
			}
			result.Outcome = paymentdomain.OutcomeFailed
		default:
			result.Outcome = paymentdomain.OutcomeUnhandled
			txn.UpdatedAt = now
			return s.repo.Save(ctx, tx, txn)
		}

		if err := s.repo.Save(ctx, tx, txn); err != nil {
			return err
		}
		return s.shopRepo.SaveOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPaymentNotification(ctx, check.PaymentStatus, result.Outcome)
	switch result.Outcome {
	case paymentdomain.OutcomeCompleted:
		log.Info("payment completed", zap.Int64("order_id", order.ID))
		events.Emit(ctx, s.publisher, events.TypeOrderPaid, strconv.FormatInt(order.ID, 10), orderEvent(order, providerTxID))
		s.forwardOrder(ctx, order.ID)
	case paymentdomain.OutcomeFailed:
		log.Info("payment refused", zap.Int64("order_id", order.ID))
		events.Emit(ctx, s.publisher, events.TypeOrderPaymentFailed, strconv.FormatInt(order.ID, 10), orderEvent(order, providerTxID))
	case paymentdomain.OutcomeUnhandled:
		log.Warn("unhandled payment status", zap.String("provider_status", check.PaymentStatus))
	}
	return result, nil
}

// touchUnverified records that the provider refused to confirm the
// transaction. Bumping updated_at moves it to the back of the stale queue so
// it is not re-checked ahead of newer transactions on every tick.
func (s *Service) touchUnverified(ctx context.Context, providerTxID string, rejected *cinetpay.RejectionError) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.repo.LockByProviderID(ctx, tx, providerTxID)
		if err != nil {
			return err
		}
		if txn == nil || !txn.Settleable() {
			return nil
		}
		txn.ProviderStatus = paymentdomain.ProviderStatusUnverified
		if rejected != nil && rejected.Code != "" {
			txn.ProviderStatus = rejected.Code
		}
		txn.UpdatedAt = s.clock.Now()
		return s.repo.Save(ctx, tx, txn)
	})
}

// forwardOrder pushes the paid order to the drop-shipping platform. A failure
// leaves the payment intact; the order can be forwarded again later.
func (s *Service) forwardOrder(ctx context.Context, orderID int64) {
	if s.remoteOrder == nil {
		return
	}
	remoteID, err := s.remoteOrder.CreateRemoteOrder(ctx, orderID)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("remote order creation failed",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return
	}
	logger.WithContext(ctx, s.log).Info("remote order created",
		zap.Int64("order_id", orderID),
		zap.String("remote_order_id", remoteID),
	)
}

// GetPaymentStatus backs the browser return URL. It only reports; the
// notification is the sole writer.
func (s *Service) GetPaymentStatus(ctx context.Context, orderIDRaw string) (*paymentdomain.PaymentStatusResponse, error) {
	orderID, err := parseID(orderIDRaw)
	if err != nil {
		return nil, err
	}
	order, err := s.shopRepo.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, shopdomain.ErrOrderNotFound
	}
	resp := &paymentdomain.PaymentStatusResponse{
		OrderID:       strconv.FormatInt(order.ID, 10),
		OrderNumber:   order.OrderNumber,
		OrderStatus:   string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
	}
	txn, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if txn != nil {
		resp.TransactionStatus = string(txn.Status)
	}
	return resp, nil
}

func checkPayable(order *shopdomain.Order) error {
	switch {
	case order.PaymentStatus == shopdomain.PaymentPaid:
		return paymentdomain.ErrOrderAlreadyPaid
	case order.Status == shopdomain.OrderRefunded, order.PaymentStatus == shopdomain.PaymentRefunded:
		return paymentdomain.ErrOrderNotPayable
	case order.TotalAmount.LessThanOrEqual(decimal.Zero):
		return paymentdomain.ErrOrderNotPayable
	}
	return nil
}

func mergeCustomer(req paymentdomain.InitiatePaymentRequest, order *shopdomain.Order) paymentdomain.InitiatePaymentRequest {
	pick := func(v, fallback string) string {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		return fallback
	}
	return paymentdomain.InitiatePaymentRequest{
		OrderID:             req.OrderID,
		CustomerName:        pick(req.CustomerName, order.CustomerFirstName),
		CustomerSurname:     pick(req.CustomerSurname, order.CustomerLastName),
		CustomerEmail:       pick(req.CustomerEmail, order.CustomerEmail),
		CustomerPhoneNumber: pick(req.CustomerPhoneNumber, order.CustomerPhone),
		CustomerAddress:     pick(req.CustomerAddress, order.ShippingAddressLine1),
		CustomerCity:        pick(req.CustomerCity, order.ShippingCity),
		CustomerCountry:     pick(req.CustomerCountry, order.ShippingCountry),
		CustomerState:       pick(req.CustomerState, order.ShippingState),
		CustomerZipCode:     pick(req.CustomerZipCode, order.ShippingPostalCode),
	}
}

func customerID(order *shopdomain.Order) string {
	if order.UserID == nil {
		return "guest"
	}
	return strconv.FormatInt(*order.UserID, 10)
}

func orderEvent(order *shopdomain.Order, providerTxID string) map[string]any {
	return map[string]any{
		"order_id":       strconv.FormatInt(order.ID, 10),
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"total":          order.TotalAmount.StringFixed(2),
		"transaction_id": providerTxID,
	}
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id.Int64() <= 0 {
		return 0, shopdomain.ErrInvalidID
	}
	return id.Int64(), nil
}
