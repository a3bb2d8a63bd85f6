package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent reports false when the webhook id was already stored.
	InsertEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) (bool, error)
}
