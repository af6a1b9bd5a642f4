package inventory

import (
	"fmt"
	"time"

	"github.com/himspired1/himspired-sub000/internal/domain"
)

// Snapshot is the derived availability view for one (product, holder)
// pair. It is computed fresh per request and cached briefly; it is never
// persisted.
type Snapshot struct {
	Stock            int    `json:"stock"`
	AvailableStock   int    `json:"availableStock"`
	ReservedByCaller int    `json:"reservedByCurrentUser"`
	ReservedByOthers int    `json:"reservedByOthers"`
	Available        bool   `json:"available"`
	OutOfStock       bool   `json:"isOutOfStock"`
	Message          string `json:"message"`
}

// ComputeAvailability reconciles the reservation ledger with pending-order
// demand for one product.
//
// A live ledger entry and a pending order sharing a session are presumed
// to be the same purchase intent recorded twice, so the pair counts once
// at max(reservation, order quantity). The max, not the reservation,
// covers an order that asks for more than the original hold. Entries or
// orders without a counterpart count at face value. This tie-break is a
// heuristic, not provably exact under every interleaving of reserve vs
// order submission; callers rely on the documented behavior, so do not
// change it casually.
func ComputeAvailability(stock int, reservations []domain.Reservation, pending map[string]int, holderID string, now time.Time) Snapshot {
	live := domain.LiveReservations(reservations, now)

	held := make(map[string]int, len(live)+len(pending))
	for _, r := range live {
		held[r.HolderID] = r.Quantity
	}
	for session, qty := range pending {
		if current, ok := held[session]; ok {
			if qty > current {
				held[session] = qty
			}
		} else {
			held[session] = qty
		}
	}

	totalReserved := 0
	for _, qty := range held {
		totalReserved += qty
	}

	availableStock := stock - totalReserved
	if availableStock < 0 {
		availableStock = 0
	}

	reservedByCaller := 0
	if r, ok := domain.FindHolder(live, holderID); ok {
		reservedByCaller = r.Quantity
	}
	reservedByOthers := totalReserved - held[holderID]

	snap := Snapshot{
		Stock:            stock,
		AvailableStock:   availableStock,
		ReservedByCaller: reservedByCaller,
		ReservedByOthers: reservedByOthers,
		OutOfStock:       stock <= 0,
	}

	// A holder with a live entry keeps their claim even when others have
	// exhausted the remainder.
	snap.Available = stock > 0 && (availableStock > 0 || reservedByCaller > 0)
	snap.Message = availabilityMessage(snap)
	return snap
}

func availabilityMessage(s Snapshot) string {
	switch {
	case s.OutOfStock:
		return "Out of stock"
	case s.ReservedByCaller > 0:
		return fmt.Sprintf("%d reserved for you", s.ReservedByCaller)
	case s.AvailableStock == 0:
		return "Currently reserved by another customer"
	case s.ReservedByOthers > 0:
		return fmt.Sprintf("Only %d of %d available, rest reserved", s.AvailableStock, s.Stock)
	default:
		return fmt.Sprintf("%d in stock", s.Stock)
	}
}

// othersHold sums the stock held against everyone except holderID: other
// holders' live entries and uncorrelated pending orders, with the same
// max-of-pair rule as ComputeAvailability.
func othersHold(reservations []domain.Reservation, pending map[string]int, holderID string, now time.Time) (held int, pendingHeld int) {
	live := domain.LiveReservations(reservations, now)

	byHolder := make(map[string]int, len(live))
	for _, r := range live {
		if r.HolderID != holderID {
			byHolder[r.HolderID] = r.Quantity
		}
	}
	for session, qty := range pending {
		if session == holderID {
			continue
		}
		pendingHeld += qty
		if current, ok := byHolder[session]; ok {
			if qty > current {
				byHolder[session] = qty
			}
		} else {
			byHolder[session] = qty
		}
	}

	for _, qty := range byHolder {
		held += qty
	}
	return held, pendingHeld
}
