package domain

import "time"

// Product is the catalog document this service mutates. Revision is the
// optimistic-concurrency token, bumped on every reservation or stock write.
type Product struct {
	ID           string        `bson:"_id" json:"id"`
	Title        string        `bson:"title" json:"title"`
	Stock        int           `bson:"stock" json:"stock"`
	Reservations []Reservation `bson:"reservations" json:"reservations"`
	Revision     int64         `bson:"revision" json:"-"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"-"`
}

// Reservation is a soft hold on stock by one shopper session. Quantity is
// the total units the holder currently wants, not an increment.
type Reservation struct {
	HolderID  string    `bson:"holder_id" json:"holderId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	Size      string    `bson:"size,omitempty" json:"size,omitempty"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
}

// Expired reports whether the entry is past its expiry at the given instant.
func (r Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Valid reports whether the entry is well formed. Malformed entries are
// kept during cleanup rather than discarded, to avoid losing a claim that
// was written by an older version of the storefront.
func (r Reservation) Valid() bool {
	return r.HolderID != "" && r.Quantity > 0 && !r.ExpiresAt.IsZero()
}

// LiveReservations returns the entries still in force at now. Malformed
// entries are excluded here (they never count against stock) but are not
// removed from the document until a cleanup write touches it.
func LiveReservations(reservations []Reservation, now time.Time) []Reservation {
	live := make([]Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Valid() && !r.Expired(now) {
			live = append(live, r)
		}
	}
	return live
}

// FindHolder returns the entry for holderID, if present.
func FindHolder(reservations []Reservation, holderID string) (Reservation, bool) {
	for _, r := range reservations {
		if r.HolderID == holderID {
			return r, true
		}
	}
	return Reservation{}, false
}
