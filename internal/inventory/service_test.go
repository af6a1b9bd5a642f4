package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/himspired1/himspired-sub000/internal/cache"
	"github.com/himspired1/himspired-sub000/internal/catalog"
	"github.com/himspired1/himspired-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, products *mockProductStore, orderStore *mockOrderStore) *Service {
	t.Helper()
	if orderStore == nil {
		orderStore = &mockOrderStore{}
	}
	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { memCache.Close() })
	return NewService(products, orderStore, memCache, &mockNotifier{})
}

func product(id string, stock int, reservations ...domain.Reservation) *domain.Product {
	return &domain.Product{
		ID:           id,
		Title:        "Test product",
		Stock:        stock,
		Reservations: reservations,
	}
}

func TestReserve_Success(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	sut := newTestService(t, store, nil)

	result, err := sut.Reserve(context.Background(), ReserveRequest{
		ProductID: "p1", HolderID: "A", Quantity: 3, Horizon: CartHorizon,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.AvailableStock)
	assert.True(t, strings.HasPrefix(result.ReservationID, "A-p1-"))
	assert.WithinDuration(t, time.Now().Add(CartHorizon), result.ReservedUntil, 5*time.Second)

	p, _ := store.Fetch(context.Background(), "p1")
	require.Len(t, p.Reservations, 1)
	assert.Equal(t, "A", p.Reservations[0].HolderID)
	assert.Equal(t, 3, p.Reservations[0].Quantity)
}

func TestReserve_TwoShoppersRaceForStock(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	sut := newTestService(t, store, nil)
	ctx := context.Background()

	_, err := sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 3})
	require.NoError(t, err)

	_, err = sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "B", Quantity: 3})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)
	assert.Contains(t, err.Error(), "2 available")

	result, err := sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "B", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, result.AvailableStock)
}

func TestReserve_ThenAvailabilityRoundTrip(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	sut := newTestService(t, store, nil)
	ctx := context.Background()

	_, err := sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 2})
	require.NoError(t, err)

	snap, err := sut.Availability(ctx, "p1", "A")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ReservedByCaller)
	assert.True(t, snap.Available)
}

func TestReserve_SelfReReserveConsumesNothing(t *testing.T) {
	store := newMockProductStore(product("p1", 3))
	sut := newTestService(t, store, nil)
	ctx := context.Background()

	_, err := sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 3})
	require.NoError(t, err)

	// The holder's own entry never counts against them.
	result, err := sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 3, IsUpdate: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.AvailableStock)

	p, _ := store.Fetch(ctx, "p1")
	assert.Len(t, p.Reservations, 1)
}

func TestReserve_UpdateDeltaCheckedAgainstOthers(t *testing.T) {
	store := newMockProductStore(product("p1", 5,
		domain.Reservation{HolderID: "A", Quantity: 2, ExpiresAt: time.Now().Add(time.Hour)},
		domain.Reservation{HolderID: "B", Quantity: 3, ExpiresAt: time.Now().Add(time.Hour)},
	))
	sut := newTestService(t, store, nil)

	// Others hold 3 of 5, so A can grow to at most 4 total.
	_, err := sut.Reserve(context.Background(), ReserveRequest{
		ProductID: "p1", HolderID: "A", Quantity: 5, IsUpdate: true,
	})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 4, insufficient.Available)

	result, err := sut.Reserve(context.Background(), ReserveRequest{
		ProductID: "p1", HolderID: "A", Quantity: 4, IsUpdate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.AvailableStock)
}

func TestReserve_ReplacesOwnExpiredEntry(t *testing.T) {
	store := newMockProductStore(product("p1", 2,
		domain.Reservation{HolderID: "A", Quantity: 2, ExpiresAt: time.Now().Add(-time.Minute)},
	))
	sut := newTestService(t, store, nil)

	_, err := sut.Reserve(context.Background(), ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 2})
	require.NoError(t, err)

	p, _ := store.Fetch(context.Background(), "p1")
	require.Len(t, p.Reservations, 1)
	assert.True(t, p.Reservations[0].ExpiresAt.After(time.Now()))
}

func TestReserve_PendingOrdersHoldStock(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	orderStore := &mockOrderStore{demand: map[string]map[string]int{
		"p1": {"other-session": 4},
	}}
	sut := newTestService(t, store, orderStore)

	_, err := sut.Reserve(context.Background(), ReserveRequest{ProductID: "p1", HolderID: "B", Quantity: 2})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Available)
	assert.Equal(t, 4, insufficient.PendingHeld)
	assert.Contains(t, err.Error(), "held by pending orders")
}

func TestReserve_OrderStoreDownAssumesNoPending(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	orderStore := &mockOrderStore{err: fmt.Errorf("order store down")}
	sut := newTestService(t, store, orderStore)

	result, err := sut.Reserve(context.Background(), ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, result.AvailableStock)
}

func TestReserve_RetriesOnRevisionConflict(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	store.conflicts = 2
	sut := newTestService(t, store, nil)

	_, err := sut.Reserve(context.Background(), ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, store.writes)
}

func TestReserve_GivesUpAfterBoundedRetries(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	store.conflicts = 10
	sut := newTestService(t, store, nil)

	_, err := sut.Reserve(context.Background(), ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 1})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, casAttempts, store.writes)
}

func TestReserve_Validation(t *testing.T) {
	sut := newTestService(t, newMockProductStore(), nil)
	ctx := context.Background()

	_, err := sut.Reserve(ctx, ReserveRequest{ProductID: "", HolderID: "A", Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "", Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReserve_ProductNotFound(t *testing.T) {
	sut := newTestService(t, newMockProductStore(), nil)

	_, err := sut.Reserve(context.Background(), ReserveRequest{ProductID: "ghost", HolderID: "A", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestAvailability_ExpiredHoldFreesStockWithoutCleanup(t *testing.T) {
	store := newMockProductStore(product("p1", 1,
		domain.Reservation{HolderID: "A", Quantity: 1, ExpiresAt: time.Now().Add(-time.Second)},
	))
	sut := newTestService(t, store, nil)

	snap, err := sut.Availability(context.Background(), "p1", "B")
	require.NoError(t, err)
	assert.True(t, snap.Available)
	assert.Equal(t, 1, snap.AvailableStock)

	// The expired entry is still on the document; only reads filter it.
	p, _ := store.Fetch(context.Background(), "p1")
	assert.Len(t, p.Reservations, 1)
}

func TestAvailability_ServedFromCache(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { memCache.Close() })
	sut := NewService(store, &mockOrderStore{}, memCache, nil)

	cached := Snapshot{Stock: 99, AvailableStock: 99, Available: true, Message: "99 in stock"}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, memCache.Set(context.Background(), availabilityKey("p1", "A"), data, time.Minute))

	snap, err := sut.Availability(context.Background(), "p1", "A")
	require.NoError(t, err)
	assert.Equal(t, 99, snap.Stock)
}

func TestAvailability_CacheFailureDegradesToDirectRead(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	sut := NewService(store, &mockOrderStore{}, brokenCache{}, nil)

	snap, err := sut.Availability(context.Background(), "p1", "A")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.AvailableStock)
}

func TestAvailability_ProductNotFound(t *testing.T) {
	sut := newTestService(t, newMockProductStore(), nil)

	_, err := sut.Availability(context.Background(), "ghost", "A")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestReserve_InvalidatesCachedAvailability(t *testing.T) {
	store := newMockProductStore(product("p1", 5))
	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { memCache.Close() })
	sut := NewService(store, &mockOrderStore{}, memCache, nil)
	ctx := context.Background()

	snap, err := sut.Availability(ctx, "p1", "B")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.AvailableStock)

	// Wait for the async cache fill so the invalidation below is observable.
	require.Eventually(t, func() bool {
		_, err := memCache.Get(ctx, availabilityKey("p1", "B"))
		return err == nil
	}, 100*time.Millisecond, 5*time.Millisecond)

	_, err = sut.Reserve(ctx, ReserveRequest{ProductID: "p1", HolderID: "A", Quantity: 3})
	require.NoError(t, err)

	_, err = memCache.Get(ctx, availabilityKey("p1", "B"))
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	snap, err = sut.Availability(ctx, "p1", "B")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.AvailableStock)
}
