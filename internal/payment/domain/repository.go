package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, tx *Transaction) error
	Save(ctx context.Context, db *gorm.DB, tx *Transaction) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID int64) (*Transaction, error)
	FindByProviderID(ctx context.Context, db *gorm.DB, providerTxID string) (*Transaction, error)
	LockByOrderID(ctx context.Context, db *gorm.DB, orderID int64) (*Transaction, error)
	LockByProviderID(ctx context.Context, db *gorm.DB, providerTxID string) (*Transaction, error)
	// ListUnsettled returns pending or processing transactions last touched
	// at or before the cutoff, oldest first.
	ListUnsettled(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]Transaction, error)
}
