package notify

import (
	"context"
	"time"
)

// StockChangedEvent tells other active sessions viewing a product that
// its stock moved and they should re-poll.
type StockChangedEvent struct {
	ProductID  string    `json:"product_id"`
	Stock      int       `json:"stock"`
	OrderID    string    `json:"order_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier publishes stock changes. Publishing is best effort: callers
// log failures and never abort the stock write over them.
type Notifier interface {
	StockChanged(ctx context.Context, event StockChangedEvent) error
}

// Nop is used when no broker is configured.
type Nop struct{}

func (Nop) StockChanged(context.Context, StockChangedEvent) error { return nil }
