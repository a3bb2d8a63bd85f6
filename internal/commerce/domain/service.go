package domain

import (
	"context"
	"errors"

	"github.com/blizzgame/marketplace/internal/commerce/shopify"
)

type Service interface {
	CreateRemoteOrder(ctx context.Context, orderID int64) (string, error)
	MarkRemotePaid(ctx context.Context, orderID int64) error
	IngestWebhook(ctx context.Context, req WebhookRequest) (*WebhookResult, error)
	UpsertProduct(ctx context.Context, product shopify.Product) (*ProductResult, error)
	DeactivateProduct(ctx context.Context, remoteProductID string) (bool, error)
	SyncCatalog(ctx context.Context, limit int) (*SyncResult, error)
}

// Platform is the remote commerce API surface the service calls.
type Platform interface {
	ListProducts(ctx context.Context, limit int) ([]shopify.Product, error)
	GetProduct(ctx context.Context, productID string) (*shopify.Product, error)
	CreateOrder(ctx context.Context, input shopify.OrderInput) (*shopify.Order, error)
	UpdateOrder(ctx context.Context, orderID string, input shopify.OrderInput) (*shopify.Order, error)
}

type SignatureVerifier interface {
	Verify(body []byte, signature string) error
}

type WebhookRequest struct {
	Topic     string
	WebhookID string
	Signature string
	Body      []byte
}

const (
	OutcomeApplied   = "applied"
	OutcomeUnchanged = "unchanged"
	OutcomeDuplicate = "duplicate"
	OutcomeNotFound  = "not_found"
	OutcomeIgnored   = "ignored"
)

type WebhookResult struct {
	Topic   string `json:"topic"`
	Outcome string `json:"outcome"`
}

type ProductResult struct {
	ProductID int64  `json:"product_id"`
	Slug      string `json:"slug"`
	Created   bool   `json:"created"`
}

type SyncResult struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

const (
	DefaultCategory = "Divers"
	UntitledProduct = "Sans titre"

	OrderTags     = "BLIZZ-Dropshipping"
	PaidOrderTags = "BLIZZ-Dropshipping,Paid-via-CinetPay"
	SourceName    = "BLIZZ"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrUnknownTopic     = errors.New("unknown_topic")
	ErrOrderNotPaid     = errors.New("order_not_paid")
	ErrNoRemoteOrder    = errors.New("no_remote_order")
)
