package catalog

import (
	"context"
	"errors"

	"github.com/himspired1/himspired-sub000/internal/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrRevisionConflict = errors.New("product revision changed since read")
)

// ProductStore is the slice of the catalog this service needs: fresh
// product reads and whole-array reservation overwrites. The catalog
// itself (titles, pricing, content) is owned elsewhere.
type ProductStore interface {
	Fetch(ctx context.Context, productID string) (*domain.Product, error)

	// ReplaceReservations overwrites the product's reservation ledger.
	// When expectedRevision is non-nil the write succeeds only if the
	// document revision still matches, returning ErrRevisionConflict
	// otherwise. The revision is incremented either way.
	ReplaceReservations(ctx context.Context, productID string, reservations []domain.Reservation, expectedRevision *int64) error

	// SetStock writes the on-hand quantity. Used only by the stock
	// decrement path on payment confirmation.
	SetStock(ctx context.Context, productID string, stock int) error
}
