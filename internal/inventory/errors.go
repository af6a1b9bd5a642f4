package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict means the bounded read-modify-write retry gave up
	// because another holder kept winning the revision race.
	ErrConflict = errors.New("concurrent reservation update, please retry")

	ErrInvalidInput = errors.New("invalid reservation input")
)

// InsufficientStockError is a business-rule rejection, not a transport
// failure. The shopper needs the numbers to decide whether to retry with
// a smaller quantity or give up.
type InsufficientStockError struct {
	Requested   int
	Available   int // units the caller could still claim, never negative
	PendingHeld int // units tied up in other sessions' pending orders
}

func (e *InsufficientStockError) Error() string {
	msg := fmt.Sprintf("not enough stock: requested %d, only %d available", e.Requested, e.Available)
	if e.PendingHeld > 0 {
		msg += fmt.Sprintf(" (%d held by pending orders)", e.PendingHeld)
	}
	return msg
}
