package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blizzgame/marketplace/internal/payment/cinetpay"
)

type Service interface {
	InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResponse, error)
	HandleNotification(ctx context.Context, providerTxID string) (*NotificationResult, error)
	GetPaymentStatus(ctx context.Context, orderID string) (*PaymentStatusResponse, error)
}

// Gateway is the payment provider surface the service needs.
type Gateway interface {
	Initiate(ctx context.Context, req cinetpay.InitiateRequest) (*cinetpay.InitiateResult, error)
	Check(ctx context.Context, transactionID string) (*cinetpay.CheckResult, error)
}

// RemoteOrderCreator forwards a paid order to the drop-shipping platform.
type RemoteOrderCreator interface {
	CreateRemoteOrder(ctx context.Context, orderID int64) (string, error)
}

// InitiatePaymentRequest fields override the order's customer data when set.
type InitiatePaymentRequest struct {
	OrderID             string `json:"-"`
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

type InitiatePaymentResponse struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
}

const (
	OutcomeUnknownTransaction = "unknown_transaction"
	OutcomeAlreadyCompleted   = "already_completed"
	OutcomeCompleted          = "completed"
	OutcomeFailed             = "failed"
	OutcomeUnhandled          = "unhandled"
	OutcomeUnverified         = "unverified"
)

type NotificationResult struct {
	TransactionID  string `json:"transaction_id"`
	ProviderStatus string `json:"provider_status,omitempty"`
	Outcome        string `json:"outcome"`
}

type PaymentStatusResponse struct {
	OrderID           string `json:"order_id"`
	OrderNumber       string `json:"order_number"`
	OrderStatus       string `json:"order_status"`
	PaymentStatus     string `json:"payment_status"`
	TransactionStatus string `json:"transaction_status,omitempty"`
}

var (
	ErrOrderAlreadyPaid     = errors.New("order_already_paid")
	ErrOrderNotPayable      = errors.New("order_not_payable")
	ErrMissingTransactionID = errors.New("missing_transaction_id")
	ErrNotificationInFlight = errors.New("notification_in_flight")
	ErrServiceUnavailable   = errors.New("payment_service_unavailable")
)

// RateLimitError asks the caller to come back after RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("payment initiation rate limited, retry after %s", e.RetryAfter)
}
