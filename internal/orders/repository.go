package orders

import (
	"context"
	"errors"

	"github.com/himspired1/himspired-sub000/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("illegal order status transition")
)

// OrderStore defines the order-store operations the inventory core needs.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, orderID string) (*domain.Order, error)

	// PendingDemand sums order quantities per session for one product,
	// across orders whose status still ties up (or recently released)
	// stock. Feeds the availability correlation.
	PendingDemand(ctx context.Context, productID string) (map[string]int, error)

	// TransitionStatus moves the order to next, guarded on the current
	// status so each transition commits at most once even under
	// concurrent admin actions.
	TransitionStatus(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error)
}
