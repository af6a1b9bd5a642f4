package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPaymentPending   OrderStatus = "payment_pending"
	OrderStatusPaymentConfirmed OrderStatus = "payment_confirmed"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusComplete         OrderStatus = "complete"
	OrderStatusCanceled         OrderStatus = "canceled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusComplete || s == OrderStatusCanceled
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo enforces the forward-only order lifecycle. Canceled is
// reachable from any non-terminal status.
func CanTransitionTo(from, to OrderStatus) bool {
	if to == OrderStatusCanceled {
		return !from.IsTerminal()
	}
	switch from {
	case OrderStatusPaymentPending:
		return to == OrderStatusPaymentConfirmed
	case OrderStatusPaymentConfirmed:
		return to == OrderStatusShipped
	case OrderStatusShipped:
		return to == OrderStatusComplete
	default:
		return false
	}
}

type OrderItem struct {
	ProductID string  `bson:"product_id" json:"productId"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
	Size      string  `bson:"size,omitempty" json:"size,omitempty"`
}

// Order lives in the order store. SessionID links back to the reservation
// holder that placed it, for availability reconciliation.
type Order struct {
	OrderID   string      `bson:"_id" json:"orderId"`
	SessionID string      `bson:"session_id" json:"sessionId"`
	Status    OrderStatus `bson:"status" json:"status"`
	Items     []OrderItem `bson:"items" json:"items"`
	CreatedAt time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `bson:"updated_at" json:"updatedAt"`
}

// NewOrderID builds the human-referenceable order id.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("HIM-%d", now.UnixMilli())
}
