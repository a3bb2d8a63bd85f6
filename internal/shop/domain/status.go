package domain

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

const (
	FulfillmentFulfilled = "fulfilled"
	FulfillmentPartial   = "partial"
)

// The transition helpers below report whether the order changed. A false
// return means the signal was stale or not allowed from the current state
// and the caller should leave the row alone.

// MarkPaid records a verified payment. Only pending or failed payments move;
// an order cancelled by an earlier refusal is revived.
func (o *Order) MarkPaid(now time.Time) bool {
	if o.PaymentStatus != PaymentPending && o.PaymentStatus != PaymentFailed {
		return false
	}
	if o.Status == OrderRefunded {
		return false
	}
	o.PaymentStatus = PaymentPaid
	if o.Status == OrderPending || o.Status == OrderCancelled {
		o.Status = OrderProcessing
	}
	o.UpdatedAt = now
	return true
}

// MarkPaymentFailed cancels an order whose payment was refused.
func (o *Order) MarkPaymentFailed(now time.Time) bool {
	if o.PaymentStatus != PaymentPending {
		return false
	}
	o.PaymentStatus = PaymentFailed
	if o.Status == OrderPending {
		o.Status = OrderCancelled
	}
	o.UpdatedAt = now
	return true
}

// ResetForRetry reopens an order whose payment was refused so a new
// checkout can run against it.
func (o *Order) ResetForRetry(now time.Time) bool {
	if o.PaymentStatus != PaymentFailed {
		return false
	}
	o.PaymentStatus = PaymentPending
	if o.Status == OrderCancelled {
		o.Status = OrderPending
	}
	o.UpdatedAt = now
	return true
}

// MarkRemotePaid reflects the remote platform reporting the order as paid.
// A refunded payment never reverts.
func (o *Order) MarkRemotePaid(now time.Time) bool {
	if o.PaymentStatus == PaymentPaid || o.PaymentStatus == PaymentRefunded {
		return false
	}
	o.PaymentStatus = PaymentPaid
	o.UpdatedAt = now
	return true
}

// MarkShipped never applies to refunded, cancelled or delivered orders.
func (o *Order) MarkShipped(now time.Time) bool {
	switch o.Status {
	case OrderRefunded, OrderCancelled, OrderDelivered, OrderShipped:
		return false
	}
	o.Status = OrderShipped
	if o.ShippedAt == nil {
		shipped := now
		o.ShippedAt = &shipped
	}
	o.UpdatedAt = now
	return true
}

// MarkProcessing moves a pending order forward on partial fulfillment. Later
// states never regress.
func (o *Order) MarkProcessing(now time.Time) bool {
	if o.Status != OrderPending {
		return false
	}
	o.Status = OrderProcessing
	o.UpdatedAt = now
	return true
}

// MarkRefunded is terminal and always wins.
func (o *Order) MarkRefunded(now time.Time) bool {
	if o.Status == OrderRefunded && o.PaymentStatus == PaymentRefunded {
		return false
	}
	o.Status = OrderRefunded
	o.PaymentStatus = PaymentRefunded
	o.UpdatedAt = now
	return true
}

func (o *Order) SetRemoteFulfillmentStatus(status string, now time.Time) bool {
	if status == "" || o.RemoteFulfillmentStatus == status {
		return false
	}
	o.RemoteFulfillmentStatus = status
	o.UpdatedAt = now
	return true
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

func (o *Order) CustomerName() string {
	if o.CustomerLastName == "" {
		return o.CustomerFirstName
	}
	return o.CustomerFirstName + " " + o.CustomerLastName
}
