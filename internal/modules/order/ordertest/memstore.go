// README: In-memory order Repository with the store's conditional-update semantics, for tests.
package ordertest

import (
	"context"
	"sync"
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type MemStore struct {
	mu     sync.Mutex
	orders map[types.ID]*order.Order
	events []order.Event
}

func NewMemStore() *MemStore {
	return &MemStore{orders: map[types.ID]*order.Order{}}
}

func (m *MemStore) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MemStore) Get(_ context.Context, id types.ID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemStore) Claim(_ context.Context, id, driverID types.ID) (order.ClaimOutcome, *order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return "", nil, order.ErrNotFound
	}
	if o.Unassigned() {
		now := time.Now()
		d := driverID
		o.DriverID = &d
		o.Status = order.StatusAssigned
		o.StatusVersion++
		o.AssignedAt = &now
		cp := *o
		return order.ClaimAssigned, &cp, nil
	}
	cp := *o
	switch {
	case o.AssignedTo(driverID):
		return order.ClaimAlreadyHeld, &cp, nil
	case o.DriverID != nil:
		return "", &cp, order.ErrAlreadyTaken
	default:
		return "", &cp, order.ErrInvalidState
	}
}

func (m *MemStore) IncrementMiss(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.MissCount++
	return nil
}

func (m *MemStore) UpdateStatus(_ context.Context, id types.ID, from, to order.Status, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from || o.StatusVersion != version {
		return false, nil
	}
	now := time.Now()
	o.Status = to
	o.StatusVersion++
	switch to {
	case order.StatusPaid:
		o.PaidAt = &now
	case order.StatusCompleted:
		o.CompletedAt = &now
	}
	return true, nil
}

func (m *MemStore) SetConfirmed(_ context.Context, id types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusAssigned || o.ConfirmedAt != nil {
		return false, nil
	}
	now := time.Now()
	o.ConfirmedAt = &now
	return true, nil
}

func (m *MemStore) AppendEvent(_ context.Context, e *order.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *MemStore) DailyStats(_ context.Context, driverID types.ID, from, to time.Time) (order.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st order.Stats
	for _, o := range m.orders {
		if !o.AssignedTo(driverID) || o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		if o.Status == order.StatusPaid || o.Status == order.StatusCompleted {
			st.Orders++
			st.Income += o.Price
		}
	}
	return st, nil
}

// Events returns the recorded audit trail.
func (m *MemStore) Events() []order.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]order.Event(nil), m.events...)
}

// Put stores o as is, bypassing Create.
func (m *MemStore) Put(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}
