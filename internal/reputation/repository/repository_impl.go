package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blizzgame/marketplace/internal/reputation/domain"
	"github.com/blizzgame/marketplace/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindStats(ctx context.Context, conn *gorm.DB, sellerID int64) (*domain.SellerStats, error) {
	var stats domain.SellerStats
	err := conn.WithContext(ctx).Where("seller_id = ?", sellerID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *repo) LockStats(ctx context.Context, conn *gorm.DB, sellerID int64) (*domain.SellerStats, error) {
	now := time.Now().UTC()
	seed := domain.SellerStats{
		SellerID:  sellerID,
		Badge:     domain.BadgeBronze,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "seller_id"}}, DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	var stats domain.SellerStats
	if err := db.ForUpdate(conn.WithContext(ctx)).
		Where("seller_id = ?", sellerID).
		First(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *repo) SaveStats(ctx context.Context, conn *gorm.DB, stats *domain.SellerStats) error {
	return conn.WithContext(ctx).
		Model(&domain.SellerStats{}).
		Where("seller_id = ?", stats.SellerID).
		Updates(map[string]any{
			"total":      stats.Total,
			"successful": stats.Successful,
			"failed":     stats.Failed,
			"disputed":   stats.Disputed,
			"fraudulent": stats.Fraudulent,
			"score":      stats.Score,
			"badge":      stats.Badge,
			"updated_at": stats.UpdatedAt,
		}).Error
}

func (r *repo) ListSellerIDs(ctx context.Context, conn *gorm.DB) ([]int64, error) {
	var ids []int64
	err := conn.WithContext(ctx).
		Model(&domain.SellerStats{}).
		Order("seller_id ASC").
		Pluck("seller_id", &ids).Error
	return ids, err
}

// InsertRating reports false when the (seller, transaction) pair exists.
func (r *repo) InsertRating(ctx context.Context, conn *gorm.DB, rating *domain.SellerRating) (bool, error) {
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "seller_id"}, {Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(rating)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
