package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TopicOrdersUpdated      = "orders/updated"
	TopicFulfillmentsCreate = "fulfillments/create"
	TopicRefundsCreate      = "refunds/create"
	TopicProductsCreate     = "products/create"
	TopicProductsUpdate     = "products/update"
	TopicProductsDelete     = "products/delete"
)

// WebhookEvent remembers a delivery so redeliveries are acknowledged without
// being applied twice.
type WebhookEvent struct {
	ID         int64          `json:"id" gorm:"primaryKey;autoIncrement:false"`
	WebhookID  string         `json:"webhook_id" gorm:"type:varchar(128);not null;uniqueIndex"`
	Topic      string         `json:"topic" gorm:"type:varchar(64);not null"`
	Payload    datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt time.Time      `json:"received_at" gorm:"not null"`
}

func (WebhookEvent) TableName() string { return "commerce_webhook_events" }

