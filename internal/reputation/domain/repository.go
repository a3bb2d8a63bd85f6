package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindStats(ctx context.Context, db *gorm.DB, sellerID int64) (*SellerStats, error)
	// LockStats loads the stats row FOR UPDATE, creating it first when missing.
	LockStats(ctx context.Context, db *gorm.DB, sellerID int64) (*SellerStats, error)
	SaveStats(ctx context.Context, db *gorm.DB, stats *SellerStats) error
	ListSellerIDs(ctx context.Context, db *gorm.DB) ([]int64, error)
	InsertRating(ctx context.Context, db *gorm.DB, rating *SellerRating) (bool, error)
}
