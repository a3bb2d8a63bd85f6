package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionProcessing TransactionStatus = "processing"
	TransactionCompleted  TransactionStatus = "completed"
	TransactionFailed     TransactionStatus = "failed"
	TransactionCancelled  TransactionStatus = "cancelled"
	TransactionRefunded   TransactionStatus = "refunded"
)

// ProviderStatusUnverified marks a transaction the provider would not confirm.
const ProviderStatusUnverified = "UNVERIFIED"

// Transaction is the local record of the provider session for an order.
// There is at most one per order; re-initiation re-points it.
type Transaction struct {
	ID                    int64             `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrderID               int64             `json:"order_id" gorm:"not null;uniqueIndex"`
	ProviderTransactionID string            `json:"provider_transaction_id" gorm:"type:varchar(100);not null;uniqueIndex"`
	PaymentURL            string            `json:"payment_url" gorm:"type:text"`
	PaymentToken          string            `json:"-" gorm:"type:varchar(255)"`
	CustomerName          string            `json:"customer_name" gorm:"type:varchar(100)"`
	CustomerSurname       string            `json:"customer_surname" gorm:"type:varchar(100)"`
	CustomerEmail         string            `json:"customer_email" gorm:"type:varchar(255)"`
	CustomerPhoneNumber   string            `json:"customer_phone_number" gorm:"type:varchar(32)"`
	CustomerCountry       string            `json:"customer_country" gorm:"type:varchar(100)"`
	Amount                decimal.Decimal   `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency              string            `json:"currency" gorm:"type:varchar(3);not null;default:XOF"`
	Status                TransactionStatus `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	ProviderStatus        string            `json:"provider_status,omitempty" gorm:"type:varchar(32)"`
	CreatedAt             time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time         `json:"updated_at" gorm:"not null"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty"`
}

func (Transaction) TableName() string { return "payment_transactions" }

// Settleable reports whether a provider verdict may still be applied.
func (t *Transaction) Settleable() bool {
	return t.Status == TransactionPending || t.Status == TransactionProcessing
}

func (t *Transaction) Complete(now time.Time) bool {
	if !t.Settleable() {
		return false
	}
	t.Status = TransactionCompleted
	completed := now
	t.CompletedAt = &completed
	t.UpdatedAt = now
	return true
}

func (t *Transaction) Fail(now time.Time) bool {
	if !t.Settleable() {
		return false
	}
	t.Status = TransactionFailed
	t.UpdatedAt = now
	return true
}

func (t *Transaction) Refund(now time.Time) bool {
	if t.Status == TransactionRefunded {
		return false
	}
	t.Status = TransactionRefunded
	t.UpdatedAt = now
	return true
}
