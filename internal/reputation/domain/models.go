package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SellerStats holds the counters a seller's score is derived from.
type SellerStats struct {
	SellerID   int64           `json:"seller_id" gorm:"primaryKey;autoIncrement:false"`
	Total      int             `json:"total" gorm:"not null;default:0"`
	Successful int             `json:"successful" gorm:"not null;default:0"`
	Failed     int             `json:"failed" gorm:"not null;default:0"`
	Disputed   int             `json:"disputed" gorm:"not null;default:0"`
	Fraudulent int             `json:"fraudulent" gorm:"not null;default:0"`
	Score      decimal.Decimal `json:"score" gorm:"type:numeric(5,2);not null;default:0"`
	Badge      BadgeLevel      `json:"badge" gorm:"type:varchar(32);not null;default:bronze"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time       `json:"updated_at" gorm:"not null"`
}

func (SellerStats) TableName() string { return "seller_stats" }

type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeFailed     Outcome = "failed"
	OutcomeDisputed   Outcome = "disputed"
	OutcomeFraudulent Outcome = "fraudulent"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailed, OutcomeDisputed, OutcomeFraudulent:
		return true
	}
	return false
}

// SellerRating records the outcome of one marketplace transaction.
type SellerRating struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	SellerID      int64     `json:"seller_id" gorm:"not null;uniqueIndex:ux_seller_ratings_seller_tx,priority:1"`
	TransactionID string    `json:"transaction_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_seller_ratings_seller_tx,priority:2"`
	Outcome       Outcome   `json:"outcome" gorm:"type:varchar(16);not null"`
	Notes         string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
}

func (SellerRating) TableName() string { return "seller_ratings" }

// Apply bumps the counter matching outcome. Only success counts towards
// Successful; every outcome counts towards Total.
func (s *SellerStats) Apply(outcome Outcome) {
	s.Total++
	switch outcome {
	case OutcomeSuccess:
		s.Successful++
	case OutcomeFailed:
		s.Failed++
	case OutcomeDisputed:
		s.Disputed++
	case OutcomeFraudulent:
		s.Fraudulent++
	}
}
