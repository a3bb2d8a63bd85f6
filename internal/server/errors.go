package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	commercedomain "github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/commerce/shopify"
	"github.com/blizzgame/marketplace/internal/payment/cinetpay"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	reputationdomain "github.com/blizzgame/marketplace/internal/reputation/domain"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		var limited *paymentdomain.RateLimitError
		if errors.As(lastErr.Err, &limited) {
			seconds := int(limited.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var (
		rejected *cinetpay.RejectionError
		limited  *paymentdomain.RateLimitError
		apiErr   *shopify.APIError
	)

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, commercedomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.As(err, &limited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many payment attempts, retry later",
		}
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "payment_rejected",
			Message: rejected.Message,
			Code:    rejected.Code,
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
			Code:    err.Error(),
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: "request cannot be processed in the current state",
			Code:    err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isUnavailableError(err):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.As(err, &apiErr):
		if apiErr.Transient() {
			return http.StatusServiceUnavailable, errorPayload{
				Type:    "service_unavailable",
				Message: "service unavailable",
			}
		}
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "commerce platform rejected the request",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger's error_type and error_code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if code == "" {
		code = payload.Type
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, shopdomain.ErrInvalidID),
		errors.Is(err, shopdomain.ErrInvalidQuantity),
		errors.Is(err, shopdomain.ErrInvalidCustomer),
		errors.Is(err, shopdomain.ErrInvalidShipping),
		errors.Is(err, reputationdomain.ErrInvalidSeller),
		errors.Is(err, reputationdomain.ErrInvalidTransaction),
		errors.Is(err, reputationdomain.ErrInvalidOutcome),
		errors.Is(err, paymentdomain.ErrMissingTransactionID),
		errors.Is(err, commercedomain.ErrInvalidPayload),
		errors.Is(err, commercedomain.ErrUnknownTopic):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, reputationdomain.ErrOutcomeAlreadyRecorded),
		errors.Is(err, paymentdomain.ErrOrderAlreadyPaid),
		errors.Is(err, paymentdomain.ErrNotificationInFlight):
		return true
	default:
		return false
	}
}

func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, shopdomain.ErrCartEmpty),
		errors.Is(err, shopdomain.ErrProductUnavailable),
		errors.Is(err, paymentdomain.ErrOrderNotPayable),
		errors.Is(err, commercedomain.ErrOrderNotPaid),
		errors.Is(err, commercedomain.ErrNoRemoteOrder):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, shopdomain.ErrCartNotFound),
		errors.Is(err, shopdomain.ErrProductNotFound),
		errors.Is(err, shopdomain.ErrOrderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isUnavailableError(err error) bool {
	switch {
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, paymentdomain.ErrServiceUnavailable),
		errors.Is(err, cinetpay.ErrServiceUnavailable),
		errors.Is(err, cinetpay.ErrNotConfigured),
		errors.Is(err, shopify.ErrNotConfigured):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "missing_transaction_id":
		return "cpm_trans_id is required"
	default:
		return "invalid value"
	}
}
