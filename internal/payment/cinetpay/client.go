package cinetpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
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
	codeCreated         = "201"
	codeSuccess         = "00"
	codeAmountTooLow    = "ERROR_AMOUNT_TOO_LOW"
	amountTooLowMessage = "Montant trop bas pour CinetPay. Augmentez le total (ex: > 100 XOF)."

	StatusAccepted = "ACCEPTED"
	StatusRefused  = "REFUSED"
)

var (
	// ErrServiceUnavailable covers transport failures, timeouts and 5xx
	// answers. The call may be retried.
	ErrServiceUnavailable = errors.New("payment_service_unavailable")
	ErrNotConfigured      = errors.New("payment_provider_not_configured")
	ErrInvalidResponse    = errors.New("payment_provider_invalid_response")
)

// RejectionError is a business refusal from the provider. Retrying the same
// request will not help.
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("cinetpay rejected request (%s): %s", e.Code, e.Message)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

type Client struct {
	apiKey  string
	siteID  string
	baseURL string
	http    *http.Client
	log     *zap.Logger
	tracer  trace.Tracer
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		apiKey:  cfg.CinetPay.APIKey,
		siteID:  cfg.CinetPay.SiteID,
		baseURL: strings.TrimRight(cfg.CinetPay.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.CinetPay.Timeout},
		log:     log.Named("cinetpay.client"),
		tracer:  otel.Tracer("blizz/cinetpay"),
	}
}

type InitiateRequest struct {
	TransactionID       string
	Amount              int64
	Currency            string
	Description         string
	ReturnURL           string
	NotifyURL           string
	CancelURL           string
	CustomerID          string
	CustomerName        string
	CustomerSurname     string
	CustomerEmail       string
	CustomerPhoneNumber string
	CustomerAddress     string
	CustomerCity        string
	CustomerCountry     string
	CustomerState       string
	CustomerZipCode     string
}

type InitiateResult struct {
	PaymentURL   string
	PaymentToken string
}

type CheckResult struct {
	Code          string
	Message       string
	PaymentStatus string
	Amount        string
	Currency      string
	PaymentMethod string
}

type paymentRequest struct {
	APIKey              string `json:"apikey"`
	SiteID              string `json:"site_id"`
	TransactionID       string `json:"transaction_id"`
	Amount              int64  `json:"amount"`
	Currency            string `json:"currency"`
	AlternativeCurrency string `json:"alternative_currency"`
	Description         string `json:"description"`
	ReturnURL           string `json:"return_url"`
	NotifyURL           string `json:"notify_url"`
	CancelURL           string `json:"cancel_url"`
	CustomerID          string `json:"customer_id"`
	CustomerName        string `json:"customer_name"`
	CustomerSurname     string `json:"customer_surname"`
	CustomerEmail       string `json:"customer_email"`
	CustomerPhoneNumber string `json:"customer_phone_number"`
	CustomerAddress     string `json:"customer_address"`
	CustomerCity        string `json:"customer_city"`
	CustomerCountry     string `json:"customer_country"`
	CustomerState       string `json:"customer_state"`
	CustomerZipCode     string `json:"customer_zip_code"`
}

type checkRequest struct {
	APIKey        string `json:"apikey"`
	SiteID        string `json:"site_id"`
	TransactionID string `json:"transaction_id"`
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paymentData struct {
	PaymentURL   string `json:"payment_url"`
	PaymentToken string `json:"payment_token"`
}

type checkData struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	PaymentMethod string `json:"payment_method"`
}

// Initiate opens a hosted payment session.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if c.apiKey == "" || c.siteID == "" {
		return nil, ErrNotConfigured
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	body := paymentRequest{
		APIKey:              c.apiKey,
		SiteID:              c.siteID,
		TransactionID:       req.TransactionID,
		Amount:              req.Amount,
		Currency:            currency,
		AlternativeCurrency: currency,
		Description:         req.Description,
		ReturnURL:           req.ReturnURL,
		NotifyURL:           req.NotifyURL,
		CancelURL:           req.CancelURL,
		CustomerID:          req.CustomerID,
		CustomerName:        req.CustomerName,
		CustomerSurname:     req.CustomerSurname,
		CustomerEmail:       req.CustomerEmail,
		CustomerPhoneNumber: req.CustomerPhoneNumber,
		CustomerAddress:     req.CustomerAddress,
		CustomerCity:        req.CustomerCity,
		CustomerCountry:     req.CustomerCountry,
		CustomerState:       req.CustomerState,
		CustomerZipCode:     req.CustomerZipCode,
	}

	env, err := c.post(ctx, "payment", "/payment", body)
	if err != nil {
		return nil, err
	}
	if env.Code != codeCreated {
		return nil, rejection(env)
	}

	var data paymentData
	if err := json.Unmarshal(env.Data, &data); err != nil || strings.TrimSpace(data.PaymentURL) == "" {
		return nil, ErrInvalidResponse
	}
	return &InitiateResult{PaymentURL: data.PaymentURL, PaymentToken: data.PaymentToken}, nil
}

// Check asks the provider for the authoritative state of a transaction.
func (c *Client) Check(ctx context.Context, transactionID string) (*CheckResult, error) {
	if c.apiKey == "" || c.siteID == "" {
		return nil, ErrNotConfigured
	}
	env, err := c.post(ctx, "check", "/payment/check", checkRequest{
		APIKey:        c.apiKey,
		SiteID:        c.siteID,
		TransactionID: transactionID,
	})
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Code: env.Code, Message: env.Message}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		if env.Code != codeSuccess {
			return nil, rejection(env)
		}
		return result, nil
	}
	var data checkData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, ErrInvalidResponse
	}
	result.PaymentStatus = strings.ToUpper(strings.TrimSpace(data.PaymentStatus))
	if result.PaymentStatus == "" {
		result.PaymentStatus = strings.ToUpper(strings.TrimSpace(data.Status))
	}
	result.Amount = data.Amount
	result.Currency = data.Currency
	result.PaymentMethod = data.PaymentMethod
	return result, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any) (*envelope, error) {
	ctx, span := c.tracer.Start(ctx, "cinetpay."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	tracing.InjectHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "transport")
		c.log.Warn("cinetpay request failed", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrServiceUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, "upstream")
		c.log.Error("cinetpay server error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// CinetPay answers some 4xx with plain text.
		env = envelope{Code: fmt.Sprint(resp.StatusCode), Message: strings.TrimSpace(string(body))}
	}
	return &env, nil
}

func rejection(env *envelope) error {
	code := strings.ToUpper(strings.TrimSpace(env.Code))
	message := strings.TrimSpace(env.Message)
	if code == codeAmountTooLow {
		message = amountTooLowMessage
	}
	if message == "" {
		message = "Erreur inconnue"
	}
	return &RejectionError{Code: code, Message: message}
}
