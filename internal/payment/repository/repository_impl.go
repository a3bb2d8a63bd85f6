package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blizzgame/marketplace/internal/payment/domain"
	"github.com/blizzgame/marketplace/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, conn *gorm.DB, tx *domain.Transaction) error {
	return conn.WithContext(ctx).Create(tx).Error
}

func (r *repo) Save(ctx context.Context, conn *gorm.DB, tx *domain.Transaction) error {
	return conn.WithContext(ctx).Save(tx).Error
}

func (r *repo) FindByOrderID(ctx context.Context, conn *gorm.DB, orderID int64) (*domain.Transaction, error) {
	return find(conn.WithContext(ctx).Where("order_id = ?", orderID))
}

func (r *repo) FindByProviderID(ctx context.Context, conn *gorm.DB, providerTxID string) (*domain.Transaction, error) {
	return find(conn.WithContext(ctx).Where("provider_transaction_id = ?", providerTxID))
}

func (r *repo) LockByOrderID(ctx context.Context, conn *gorm.DB, orderID int64) (*domain.Transaction, error) {
	return find(db.ForUpdate(conn.WithContext(ctx)).Where("order_id = ?", orderID))
}

func (r *repo) LockByProviderID(ctx context.Context, conn *gorm.DB, providerTxID string) (*domain.Transaction, error) {
	return find(db.ForUpdate(conn.WithContext(ctx)).Where("provider_transaction_id = ?", providerTxID))
}

func (r *repo) ListUnsettled(ctx context.Context, conn *gorm.DB, before time.Time, limit int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := conn.WithContext(ctx).
		Where("status IN ?", []domain.TransactionStatus{domain.TransactionPending, domain.TransactionProcessing}).
		Where("updated_at <= ?", before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func find(q *gorm.DB) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := q.First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
