package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPaymentInitiation = "shop:payment:initiate:%s"

// PaymentInitiationLimiter bounds how often one order may call the payment
// provider. A nil limiter allows everything.
type PaymentInitiationLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewPaymentInitiationLimiter(client *redis.Client, log *zap.Logger) *PaymentInitiationLimiter {
	if client == nil {
		return nil
	}
	return &PaymentInitiationLimiter{
		bucket: NewTokenBucket(client),
		rate:   1.0 / 20.0,
		burst:  3,
		log:    log.Named("ratelimit.payment"),
	}
}

// Allow fails open when redis errors.
func (l *PaymentInitiationLimiter) Allow(ctx context.Context, orderID string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	key := fmt.Sprintf(keyPaymentInitiation, strings.TrimSpace(orderID))
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("payment rate limit check failed", zap.String("order_id", orderID), zap.Error(err))
		return true, 0
	}
	return res.Allowed, res.RetryAfter
}
