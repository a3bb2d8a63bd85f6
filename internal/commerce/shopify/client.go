package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	accessTokenHeader = "X-Shopify-Access-Token"
	DefaultListLimit  = 250
)

var ErrNotConfigured = errors.New("commerce_platform_not_configured")

// APIError is a non-2xx answer or a transport failure.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shopify %s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("shopify %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// Transient reports whether retrying later may succeed.
func (e *APIError) Transient() bool {
	return e.Err != nil || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
	log         *zap.Logger
	tracer      trace.Tracer
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:     BaseURL(cfg.Shopify),
		accessToken: cfg.Shopify.AccessToken,
		http:        &http.Client{Timeout: cfg.Shopify.Timeout},
		log:         log.Named("shopify.client"),
		tracer:      otel.Tracer("blizz/shopify"),
	}
}

// BaseURL prefers the explicit shop URL over the myshopify host derived from
// the shop name.
func BaseURL(cfg config.ShopifyConfig) string {
	host := strings.TrimRight(strings.TrimSpace(cfg.ShopURL), "/")
	if host == "" {
		name := strings.TrimSpace(cfg.ShopName)
		if name == "" {
			return ""
		}
		host = "https://" + name + ".myshopify.com"
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		version = "2023-10"
	}
	return host + "/admin/api/" + version
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.accessToken != ""
}

func (c *Client) ListProducts(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	var out struct {
		Products []Product `json:"products"`
	}
	q := url.Values{"limit": []string{strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, "products.json?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var out struct {
		Product *Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "products/"+url.PathEscape(productID)+".json", nil, &out); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, &APIError{Method: http.MethodGet, Path: "products/" + productID, StatusCode: http.StatusNotFound}
	}
	return out.Product, nil
}

func (c *Client) CreateOrder(ctx context.Context, input OrderInput) (*Order, error) {
	return c.orderCall(ctx, http.MethodPost, "orders.json", input)
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return c.orderCall(ctx, http.MethodGet, "orders/"+url.PathEscape(orderID)+".json", nil)
}

func (c *Client) UpdateOrder(ctx context.Context, orderID string, input OrderInput) (*Order, error) {
	return c.orderCall(ctx, http.MethodPut, "orders/"+url.PathEscape(orderID)+".json", input)
}

func (c *Client) CreateFulfillment(ctx context.Context, orderID string, f Fulfillment) (*Fulfillment, error) {
	var out struct {
		Fulfillment *Fulfillment `json:"fulfillment"`
	}
	body := map[string]Fulfillment{"fulfillment": f}
	if err := c.do(ctx, http.MethodPost, "orders/"+url.PathEscape(orderID)+"/fulfillments.json", body, &out); err != nil {
		return nil, err
	}
	if out.Fulfillment == nil {
		return nil, &APIError{Method: http.MethodPost, Path: "fulfillments", Err: errors.New("empty response")}
	}
	return out.Fulfillment, nil
}

func (c *Client) orderCall(ctx context.Context, method, path string, input any) (*Order, error) {
	var body any
	if input != nil {
		body = map[string]any{"order": input}
	}
	var out struct {
		Order *Order `json:"order"`
	}
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, &APIError{Method: method, Path: path, Err: errors.New("empty order in response")}
	}
	return out.Order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	ctx, span := c.tracer.Start(ctx, "shopify "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set(accessTokenHeader, c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.InjectHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "transport")
		return &APIError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, "status")
		c.log.Warn("shopify request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
