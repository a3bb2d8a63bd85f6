package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/commerce/shopify"
	"github.com/blizzgame/marketplace/internal/events"
	"github.com/blizzgame/marketplace/internal/observability/logger"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type orderPayload struct {
	ID                shopify.ID `json:"id"`
	FinancialStatus   string     `json:"financial_status"`
	FulfillmentStatus string     `json:"fulfillment_status"`
}

type fulfillmentPayload struct {
	ID      shopify.ID `json:"id"`
	OrderID shopify.ID `json:"order_id"`
	Status  string     `json:"status"`
}

type refundPayload struct {
	ID      shopify.ID `json:"id"`
	OrderID shopify.ID `json:"order_id"`
}

type deletePayload struct {
	ID shopify.ID `json:"id"`
}

// effect is what a webhook changed, published once the transaction commits.
type effect struct {
	outcome   string
	eventType string
	key       string
	payload   map[string]any
	after     func()
}

// IngestWebhook verifies, deduplicates and applies one platform webhook.
// Nothing is written unless the signature matches.
func (s *Service) IngestWebhook(ctx context.Context, req domain.WebhookRequest) (*domain.WebhookResult, error) {
	topic := strings.ToLower(strings.TrimSpace(req.Topic))
	if err := s.verifier.Verify(req.Body, req.Signature); err != nil {
		s.obsMetrics.RecordWebhook(ctx, topic, "unauthorized")
		return nil, domain.ErrInvalidSignature
	}
	if !json.Valid(req.Body) {
		s.obsMetrics.RecordWebhook(ctx, topic, "invalid")
		return nil, domain.ErrInvalidPayload
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("topic", topic),
		zap.String("webhook_id", req.WebhookID),
	)

	var eff effect
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if id := strings.TrimSpace(req.WebhookID); id != "" {
			inserted, err := s.repo.InsertEvent(ctx, tx, &domain.WebhookEvent{
				ID:         s.genID.Generate().Int64(),
				WebhookID:  id,
				Topic:      topic,
				Payload:    datatypes.JSON(req.Body),
				ReceivedAt: s.clock.Now(),
			})
			if err != nil {
				return err
			}
			if !inserted {
				eff.outcome = domain.OutcomeDuplicate
				return nil
			}
		}

		var err error
		switch topic {
		case domain.TopicOrdersUpdated:
			eff, err = s.applyOrderUpdate(ctx, tx, req.Body)
		case domain.TopicFulfillmentsCreate:
			eff, err = s.applyFulfillment(ctx, tx, req.Body)
		case domain.TopicRefundsCreate:
			eff, err = s.applyRefund(ctx, tx, req.Body)
		case domain.TopicProductsCreate, domain.TopicProductsUpdate:
			eff, err = s.applyProduct(ctx, tx, req.Body)
		case domain.TopicProductsDelete:
			eff, err = s.applyProductDelete(ctx, tx, req.Body)
		default:
			return domain.ErrUnknownTopic
		}
		return err
	})
	if err != nil {
		s.obsMetrics.RecordWebhook(ctx, topic, "error")
		return nil, err
	}

	s.obsMetrics.RecordWebhook(ctx, topic, eff.outcome)
	switch eff.outcome {
	case domain.OutcomeNotFound:
		log.Warn("webhook target not found", zap.String("key", eff.key))
	case domain.OutcomeDuplicate:
		log.Info("duplicate webhook acknowledged")
	default:
		log.Info("webhook processed", zap.String("outcome", eff.outcome))
	}
	if eff.after != nil {
		eff.after()
	}
	if eff.eventType != "" {
		events.Emit(ctx, s.publisher, eff.eventType, eff.key, eff.payload)
	}
	return &domain.WebhookResult{Topic: topic, Outcome: eff.outcome}, nil
}

func decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.ErrInvalidPayload
	}
	return nil
}

func (s *Service) applyOrderUpdate(ctx context.Context, tx *gorm.DB, body []byte) (effect, error) {
	var p orderPayload
	if err := decode(body, &p); err != nil {
		return effect{}, err
	}
	order, err := s.shopRepo.LockOrderByRemoteID(ctx, tx, p.ID.String())
	if err != nil {
		return effect{}, err
	}
	if order == nil {
		return effect{outcome: domain.OutcomeNotFound, key: p.ID.String()}, nil
	}

	now := s.clock.Now()
	fulfillment := strings.ToLower(strings.TrimSpace(p.FulfillmentStatus))
	financial := strings.ToLower(strings.TrimSpace(p.FinancialStatus))
	changed := false
	eff := effect{outcome: domain.OutcomeUnchanged, key: strconv.FormatInt(order.ID, 10)}

	switch fulfillment {
	case shopdomain.FulfillmentFulfilled:
		if order.MarkShipped(now) {
			changed = true
			eff.eventType = events.TypeOrderShipped
		}
	case shopdomain.FulfillmentPartial:
		changed = order.MarkProcessing(now) || changed
	}

	switch financial {
	case "paid":
		changed = order.MarkRemotePaid(now) || changed
	case "refunded":
		refunded, err := s.refund(ctx, tx, order, now)
		if err != nil {
			return effect{}, err
		}
		if refunded {
			changed = true
			eff.eventType = events.TypeOrderRefunded
		}
	}

	changed = order.SetRemoteFulfillmentStatus(fulfillment, now) || changed
	if !changed {
		return eff, nil
	}
	if err := s.shopRepo.SaveOrder(ctx, tx, order); err != nil {
		return effect{}, err
	}
	eff.outcome = domain.OutcomeApplied
	eff.payload = orderEvent(order)
	return eff, nil
}

func (s *Service) applyFulfillment(ctx context.Context, tx *gorm.DB, body []byte) (effect, error) {
	var p fulfillmentPayload
	if err := decode(body, &p); err != nil {
		return effect{}, err
	}
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case "cancelled", "failure", "error":
		return effect{outcome: domain.OutcomeIgnored, key: p.OrderID.String()}, nil
	}

	order, err := s.shopRepo.LockOrderByRemoteID(ctx, tx, p.OrderID.String())
	if err != nil {
		return effect{}, err
	}
	if order == nil {
		return effect{outcome: domain.OutcomeNotFound, key: p.OrderID.String()}, nil
	}

	now := s.clock.Now()
	eff := effect{outcome: domain.OutcomeUnchanged, key: strconv.FormatInt(order.ID, 10)}
	shipped := order.MarkShipped(now)
	if shipped {
		eff.eventType = events.TypeOrderShipped
	}
	if !order.SetRemoteFulfillmentStatus(shopdomain.FulfillmentFulfilled, now) && !shipped {
		return eff, nil
	}
	if err := s.shopRepo.SaveOrder(ctx, tx, order); err != nil {
		return effect{}, err
	}
	eff.outcome = domain.OutcomeApplied
	eff.payload = orderEvent(order)
	return eff, nil
}

func (s *Service) applyRefund(ctx context.Context, tx *gorm.DB, body []byte) (effect, error) {
	var p refundPayload
	if err := decode(body, &p); err != nil {
		return effect{}, err
	}
	order, err := s.shopRepo.LockOrderByRemoteID(ctx, tx, p.OrderID.String())
	if err != nil {
		return effect{}, err
	}
	if order == nil {
		return effect{outcome: domain.OutcomeNotFound, key: p.OrderID.String()}, nil
	}

	eff := effect{outcome: domain.OutcomeUnchanged, key: strconv.FormatInt(order.ID, 10)}
	refunded, err := s.refund(ctx, tx, order, s.clock.Now())
	if err != nil || !refunded {
		return eff, err
	}
	if err := s.shopRepo.SaveOrder(ctx, tx, order); err != nil {
		return effect{}, err
	}
	eff.outcome = domain.OutcomeApplied
	eff.eventType = events.TypeOrderRefunded
	eff.payload = orderEvent(order)
	return eff, nil
}

// refund moves the order to refunded and cascades to its payment
// transaction. The caller saves the order.
func (s *Service) refund(ctx context.Context, tx *gorm.DB, order *shopdomain.Order, now time.Time) (bool, error) {
	txn, err := s.paymentRepo.LockByOrderID(ctx, tx, order.ID)
	if err != nil {
		return false, err
	}
	if txn != nil && txn.Refund(now) {
		if err := s.paymentRepo.Save(ctx, tx, txn); err != nil {
			return false, err
		}
	}
	return order.MarkRefunded(now), nil
}

func (s *Service) applyProduct(ctx context.Context, tx *gorm.DB, body []byte) (effect, error) {
	var p shopify.Product
	if err := decode(body, &p); err != nil {
		return effect{}, err
	}
	if p.ID == "" {
		return effect{}, domain.ErrInvalidPayload
	}
	res, variantID, err := s.upsertProduct(ctx, tx, p)
	if err != nil {
		return effect{}, err
	}
	return effect{
		outcome:   domain.OutcomeApplied,
		eventType: events.TypeCatalogProductUpserted,
		key:       strconv.FormatInt(res.ProductID, 10),
		payload:   map[string]any{"product_id": strconv.FormatInt(res.ProductID, 10), "remote_product_id": p.ID.String(), "created": res.Created},
		after:     func() { s.rememberVariant(p.ID.String(), variantID) },
	}, nil
}

func (s *Service) applyProductDelete(ctx context.Context, tx *gorm.DB, body []byte) (effect, error) {
	var p deletePayload
	if err := decode(body, &p); err != nil {
		return effect{}, err
	}
	found, err := s.deactivate(ctx, tx, p.ID.String())
	if err != nil {
		return effect{}, err
	}
	if !found {
		return effect{outcome: domain.OutcomeNotFound, key: p.ID.String()}, nil
	}
	return effect{
		outcome:   domain.OutcomeApplied,
		eventType: events.TypeCatalogProductDeactivated,
		key:       p.ID.String(),
		payload:   map[string]any{"remote_product_id": p.ID.String()},
		after:     func() { s.variants.Forget(p.ID.String()) },
	}, nil
}

func orderEvent(order *shopdomain.Order) map[string]any {
	return map[string]any{
		"order_id":                  strconv.FormatInt(order.ID, 10),
		"order_number":              order.OrderNumber,
		"status":                    order.Status,
		"payment_status":            order.PaymentStatus,
		"remote_order_id":           order.RemoteOrderID,
		"remote_fulfillment_status": order.RemoteFulfillmentStatus,
	}
}
