package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/blizzgame/marketplace/internal/config"
)

const (
	HmacHeader      = "X-Shopify-Hmac-Sha256"
	WebhookIDHeader = "X-Shopify-Webhook-Id"
	TopicHeader     = "X-Shopify-Topic"
)

var ErrInvalidSignature = errors.New("invalid_signature")

// Verifier checks webhook signatures. Without a secret every payload is
// rejected.
type Verifier struct {
	secret []byte
}

func NewVerifier(cfg config.Config) *Verifier {
	return &Verifier{secret: []byte(strings.TrimSpace(cfg.Shopify.WebhookSecret))}
}

func (v *Verifier) Verify(body []byte, signature string) error {
	if v == nil || len(v.secret) == 0 {
		return ErrInvalidSignature
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrInvalidSignature
	}
	if !hmac.Equal([]byte(Sign(v.secret, body)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns base64(HMAC-SHA256(secret, body)).
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
