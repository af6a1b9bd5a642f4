package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/himspired1/himspired-sub000/internal/catalog"
	"github.com/himspired1/himspired-sub000/internal/domain"
)

// CleanupRequest selects one of three release policies, most aggressive
// first: ClearAll drops everything unconditionally (admin unstick),
// HolderID drops one session's entries (explicit release), and the
// default drops only entries past their expiry (routine GC, safe to run
// anytime).
type CleanupRequest struct {
	ProductID string
	HolderID  string
	ClearAll  bool
}

type CleanupResult struct {
	OriginalCount  int `json:"originalCount"`
	ClearedCount   int `json:"clearedCount"`
	RemainingCount int `json:"remainingCount"`
}

// Cleanup filters the reservation array and writes it back under the
// revision guard so it cannot clobber a reservation committed after the
// read. Conflicts retry a bounded number of times.
//
// Except under ClearAll, malformed entries are retained rather than
// discarded; losing a shopper's hold is worse than carrying a broken row
// until an admin clears it.
func (s *Service) Cleanup(ctx context.Context, req CleanupRequest) (*CleanupResult, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		result, err := s.tryCleanup(ctx, req)
		if errors.Is(err, catalog.ErrRevisionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, ErrConflict
}

func (s *Service) tryCleanup(ctx context.Context, req CleanupRequest) (*CleanupResult, error) {
	product, err := s.products.Fetch(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	original := len(product.Reservations)
	next := make([]domain.Reservation, 0, original)

	for _, r := range product.Reservations {
		if keepReservation(r, req, now) {
			next = append(next, r)
		}
	}

	cleared := original - len(next)
	if cleared == 0 {
		// Nothing to drop; skip the write so routine GC stays idempotent
		// and does not churn the revision.
		return &CleanupResult{
			OriginalCount:  original,
			ClearedCount:   0,
			RemainingCount: original,
		}, nil
	}

	revision := product.Revision
	if err := s.products.ReplaceReservations(ctx, req.ProductID, next, &revision); err != nil {
		return nil, err
	}

	s.invalidateProduct(req.ProductID)

	return &CleanupResult{
		OriginalCount:  original,
		ClearedCount:   cleared,
		RemainingCount: len(next),
	}, nil
}

func keepReservation(r domain.Reservation, req CleanupRequest, now time.Time) bool {
	switch {
	case req.ClearAll:
		return false
	case req.HolderID != "":
		return r.HolderID != req.HolderID
	default:
		// Expired-only GC: malformed entries are not provably expired,
		// so they stay.
		if !r.Valid() {
			return true
		}
		return !r.Expired(now)
	}
}
