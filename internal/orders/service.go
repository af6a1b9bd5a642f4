package orders

import (
	"context"
	"fmt"
	"log"

	"github.com/himspired1/himspired-sub000/internal/domain"
)

// StockDecrementer permanently commits a sale. Implemented by the
// inventory service; declared here so the order flow does not depend on
// the inventory package.
type StockDecrementer interface {
	ConfirmSale(ctx context.Context, productID string, quantity int, orderID string) error
}

// Service drives order lifecycle transitions. The transition guard in the
// store is the de-duplication point for the stock decrement: the
// decrement itself is not idempotent.
type Service struct {
	store OrderStore
	stock StockDecrementer
}

func NewService(store OrderStore, stock StockDecrementer) *Service {
	return &Service{store: store, stock: stock}
}

func (s *Service) Create(ctx context.Context, order *domain.Order) error {
	if len(order.Items) == 0 {
		return fmt.Errorf("order has no items")
	}
	for _, item := range order.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return fmt.Errorf("order item must have a product id and positive quantity")
		}
	}
	return s.store.Create(ctx, order)
}

// MarkConfirmed moves the order into payment_confirmed and fires the
// stock decrement once per item. The guarded transition commits first, so
// a second confirmation attempt fails before any decrement runs.
// A decrement failure after the transition is surfaced but the status is
// not rolled back; the two stores share no transaction and the drift is
// reconciled by the availability correlation.
func (s *Service) MarkConfirmed(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.store.TransitionStatus(ctx, orderID, domain.OrderStatusPaymentConfirmed)
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.stock.ConfirmSale(ctx, item.ProductID, item.Quantity, order.OrderID); err != nil {
			log.Printf("stock decrement failed for order %s product %s: %v", order.OrderID, item.ProductID, err)
			return order, fmt.Errorf("order %s confirmed but stock decrement failed for product %s: %w", order.OrderID, item.ProductID, err)
		}
	}

	return order, nil
}

// Transition applies an admin-driven status change without side effects.
// payment_confirmed must go through MarkConfirmed.
func (s *Service) Transition(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	if next == domain.OrderStatusPaymentConfirmed {
		return s.MarkConfirmed(ctx, orderID)
	}
	return s.store.TransitionStatus(ctx, orderID, next)
}
