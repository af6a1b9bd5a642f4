package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/himspired1/himspired-sub000/internal/catalog"
	"github.com/himspired1/himspired-sub000/internal/domain"
	"github.com/himspired1/himspired-sub000/internal/notify"
	"github.com/himspired1/himspired-sub000/internal/orders"
)

type mockProductStore struct {
	mu       sync.Mutex
	products map[string]*domain.Product

	fetchErr error
	writeErr error

	// conflicts makes the next N guarded writes lose the revision race.
	conflicts int
	writes    int
}

func newMockProductStore(products ...*domain.Product) *mockProductStore {
	m := &mockProductStore{products: make(map[string]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductStore) Fetch(_ context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}

	copied := *p
	copied.Reservations = append([]domain.Reservation(nil), p.Reservations...)
	return &copied, nil
}

func (m *mockProductStore) ReplaceReservations(_ context.Context, productID string, reservations []domain.Reservation, expectedRevision *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	p, ok := m.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		p.Revision++ // a racing writer got there first
		return catalog.ErrRevisionConflict
	}
	if expectedRevision != nil && *expectedRevision != p.Revision {
		return catalog.ErrRevisionConflict
	}

	p.Reservations = append([]domain.Reservation(nil), reservations...)
	p.Revision++
	return nil
}

func (m *mockProductStore) SetStock(_ context.Context, productID string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	p, ok := m.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.Stock = stock
	p.Revision++
	return nil
}

type mockOrderStore struct {
	demand map[string]map[string]int // productID -> sessionID -> quantity
	err    error
}

var _ orders.OrderStore = (*mockOrderStore)(nil)

func (m *mockOrderStore) PendingDemand(_ context.Context, productID string) (map[string]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.demand[productID], nil
}

func (m *mockOrderStore) Create(context.Context, *domain.Order) error { return nil }

func (m *mockOrderStore) Get(context.Context, string) (*domain.Order, error) {
	return nil, orders.ErrOrderNotFound
}

func (m *mockOrderStore) TransitionStatus(context.Context, string, domain.OrderStatus) (*domain.Order, error) {
	return nil, orders.ErrOrderNotFound
}

type mockNotifier struct {
	mu     sync.Mutex
	events []notify.StockChangedEvent
	err    error
}

func (m *mockNotifier) StockChanged(_ context.Context, event notify.StockChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// brokenCache fails every operation; the service must degrade, never error.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errContext("cache get failed")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errContext("cache set failed")
}
func (brokenCache) Delete(context.Context, string) error {
	return errContext("cache delete failed")
}
func (brokenCache) DeletePrefix(context.Context, string) error {
	return errContext("cache prefix delete failed")
}
func (brokenCache) Available(context.Context) bool { return false }

type errContext string

func (e errContext) Error() string { return string(e) }
