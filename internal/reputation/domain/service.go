package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	RecordOutcome(ctx context.Context, req RecordOutcomeRequest) (*Reputation, error)
	Recompute(ctx context.Context, sellerID int64) (*Reputation, error)
	RecomputeAll(ctx context.Context) (int, error)
	GetSellerReputation(ctx context.Context, sellerID int64, lang string) (*Reputation, error)
	Badges(ctx context.Context, lang string) []Badge
}

type RecordOutcomeRequest struct {
	SellerID      int64   `json:"-"`
	TransactionID string  `json:"transaction_id"`
	Outcome       Outcome `json:"outcome"`
	Notes         string  `json:"notes"`
}

type Reputation struct {
	SellerID   string    `json:"seller_id"`
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Disputed   int       `json:"disputed"`
	Fraudulent int       `json:"fraudulent"`
	Score      float64   `json:"score"`
	Badge      Badge     `json:"badge"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

var (
	ErrInvalidSeller          = errors.New("invalid_seller")
	ErrInvalidTransaction     = errors.New("invalid_transaction")
	ErrInvalidOutcome         = errors.New("invalid_outcome")
	ErrOutcomeAlreadyRecorded = errors.New("outcome_already_recorded")
)
