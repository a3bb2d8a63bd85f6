package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	TypeOrderPaid                 = "order.paid"
	TypeOrderPaymentFailed        = "order.payment_failed"
	TypeOrderRemoteCreated        = "order.remote_created"
	TypeOrderShipped              = "order.shipped"
	TypeOrderRefunded             = "order.refunded"
	TypeSellerReputationUpdated   = "seller.reputation_updated"
	TypeCatalogProductUpserted    = "catalog.product_upserted"
	TypeCatalogProductDeactivated = "catalog.product_deactivated"
)

// Event is a domain fact published after the transaction that produced it
// has committed. Consumers must tolerate duplicates.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Key           string          `json:"key"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// New builds an event with a fresh ULID. Payload marshal failures surface
// when publishing.
func New(ctx context.Context, eventType, key string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	_, cid := EnsureCorrelationID(ctx)
	return Event{
		ID:            ulid.Make().String(),
		Type:          eventType,
		Key:           key,
		CorrelationID: cid,
		Payload:       raw,
		OccurredAt:    time.Now().UTC(),
	}, nil
}

type correlationKey struct{}

func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID returns ctx carrying a correlation id, generating one
// when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := CorrelationIDFromContext(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}
