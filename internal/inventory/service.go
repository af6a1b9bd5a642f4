package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/himspired1/himspired-sub000/internal/cache"
	"github.com/himspired1/himspired-sub000/internal/catalog"
	"github.com/himspired1/himspired-sub000/internal/domain"
	"github.com/himspired1/himspired-sub000/internal/notify"
	"github.com/himspired1/himspired-sub000/internal/orders"
	"golang.org/x/sync/singleflight"
)

const (
	// AvailabilityTTL bounds how stale a cached snapshot can get between
	// the browser's polls.
	AvailabilityTTL = 30 * time.Second

	// CartHorizon is the reservation lifetime for add-to-cart.
	CartHorizon = 30 * time.Minute

	// CheckoutHorizon extends the hold once the shopper enters checkout.
	CheckoutHorizon = 24 * time.Hour

	// casAttempts bounds the read-modify-write retry on revision conflict.
	casAttempts = 3
)

type Service struct {
	products catalog.ProductStore
	orders   orders.OrderStore
	cache    cache.Cache
	notifier notify.Notifier
	sfg      singleflight.Group // prevents cache stampede per (product, holder)
}

func NewService(products catalog.ProductStore, orderStore orders.OrderStore, c cache.Cache, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		products: products,
		orders:   orderStore,
		cache:    c,
		notifier: notifier,
	}
}

func availabilityKey(productID, holderID string) string {
	return fmt.Sprintf("availability:%s:%s", productID, holderID)
}

func availabilityPrefix(productID string) string {
	return fmt.Sprintf("availability:%s:", productID)
}

// Availability returns the sellable view of a product for one holder,
// read through the cache. The cache is an accelerator only; any cache
// failure degrades to a direct computation.
func (s *Service) Availability(ctx context.Context, productID, holderID string) (*Snapshot, error) {
	key := availabilityKey(productID, holderID)

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		data, cacheErr := s.cache.Get(ctx, key)
		if cacheErr == nil {
			var snap Snapshot
			unmarshalErr := json.Unmarshal(data, &snap)
			if unmarshalErr == nil {
				return &snap, nil
			}
			log.Printf("discarding unreadable cached snapshot for %s: %v", key, unmarshalErr)
		} else if !errors.Is(cacheErr, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", cacheErr)
		}

		snap, err := s.computeAvailability(ctx, productID, holderID)
		if err != nil {
			return nil, err
		}

		go func() {
			data, err := json.Marshal(snap)
			if err != nil {
				return
			}
			if err := s.cache.Set(context.Background(), key, data, AvailabilityTTL); err != nil {
				log.Printf("cache set error: %v", err)
			}
		}()

		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Snapshot), nil
}

func (s *Service) computeAvailability(ctx context.Context, productID, holderID string) (*Snapshot, error) {
	product, err := s.products.Fetch(ctx, productID)
	if err != nil {
		return nil, err
	}

	pending := s.pendingDemand(ctx, productID)

	snap := ComputeAvailability(product.Stock, product.Reservations, pending, holderID, time.Now())
	return &snap, nil
}

// pendingDemand never fails the request: an order-store outage counts as
// zero pending demand, which errs toward availability. Documented risk.
func (s *Service) pendingDemand(ctx context.Context, productID string) map[string]int {
	pending, err := s.orders.PendingDemand(ctx, productID)
	if err != nil {
		log.Printf("pending order lookup failed for product %s, assuming none: %v", productID, err)
		return nil
	}
	return pending
}

type ReserveRequest struct {
	ProductID string
	HolderID  string
	Quantity  int
	Size      string
	IsUpdate  bool
	Horizon   time.Duration
}

type ReserveResult struct {
	ReservationID  string    `json:"reservationId"`
	ReservedUntil  time.Time `json:"reservedUntil"`
	AvailableStock int       `json:"availableStock"`
}

// Reserve validates the requested quantity against what other holders
// have claimed, then rewrites the caller's ledger entry. The whole array
// is rewritten under a revision guard and the read-modify-write retries
// a bounded number of times on conflict.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	if req.ProductID == "" || req.HolderID == "" {
		return nil, fmt.Errorf("%w: product id and session id are required", ErrInvalidInput)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrInvalidInput)
	}
	if req.Horizon <= 0 {
		req.Horizon = CartHorizon
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		result, err := s.tryReserve(ctx, req)
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

func (s *Service) tryReserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	// Always a fresh read; a cached product would clobber newer holds.
	product, err := s.products.Fetch(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	pending := s.pendingDemand(ctx, req.ProductID)

	live := domain.LiveReservations(product.Reservations, now)
	existing, hasExisting := domain.FindHolder(live, req.HolderID)

	othersReserved, pendingHeld := othersHold(product.Reservations, pending, req.HolderID, now)
	availableForCaller := product.Stock - othersReserved

	needed := req.Quantity
	if req.IsUpdate && hasExisting {
		needed = req.Quantity - existing.Quantity
	}
	if needed > availableForCaller {
		available := availableForCaller
		if req.IsUpdate && hasExisting {
			available += existing.Quantity
		}
		if available < 0 {
			available = 0
		}
		return nil, &InsufficientStockError{
			Requested:   req.Quantity,
			Available:   available,
			PendingHeld: pendingHeld,
		}
	}

	entry := domain.Reservation{
		HolderID:  req.HolderID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		ExpiresAt: now.Add(req.Horizon),
	}

	// Rebuild the array: replace the caller's entry, drop expired ones,
	// keep malformed ones untouched.
	next := make([]domain.Reservation, 0, len(product.Reservations)+1)
	for _, r := range product.Reservations {
		if r.HolderID == req.HolderID {
			continue
		}
		if r.Valid() && r.Expired(now) {
			continue
		}
		next = append(next, r)
	}
	next = append(next, entry)

	revision := product.Revision
	if err := s.products.ReplaceReservations(ctx, req.ProductID, next, &revision); err != nil {
		return nil, err
	}

	s.invalidateProduct(req.ProductID)

	availableStock := product.Stock - (othersReserved + req.Quantity)
	if availableStock < 0 {
		availableStock = 0
	}

	return &ReserveResult{
		// Client-side tracking token only, never a server-side lookup key.
		ReservationID:  fmt.Sprintf("%s-%s-%d", req.HolderID, req.ProductID, now.UnixMilli()),
		ReservedUntil:  entry.ExpiresAt,
		AvailableStock: availableStock,
	}, nil
}

func (s *Service) invalidateProduct(productID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.DeletePrefix(ctx, availabilityPrefix(productID)); err != nil {
		log.Printf("cache invalidate error for product %s: %v", productID, err)
	}
}
