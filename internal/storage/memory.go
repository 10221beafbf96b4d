// Package storage contains the in-memory order persistence layer used when no
// database is configured. Go keeps each package in its own folder; files in
// the folder share a namespace.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/IntakeDesk/internal/model"
)

// MemoryStore keeps orders in a map guarded by an RWMutex. RWMutex lets
// multiple readers list orders concurrently while writes stay exclusive.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]*model.Order
	now    func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[int64]*model.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns copies of every order, newest first.
func (m *MemoryStore) List(ctx context.Context) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, clone(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Create assigns the next id and stores the order.
func (m *MemoryStore) Create(ctx context.Context, req model.CreateOrderRequest) (*model.Order, error) {
	m.mu.Lock()
	// defer schedules the unlock for when the function returns, even on early
	// exits.
	defer m.mu.Unlock()
	m.nextID++
	now := m.now()
	o := &model.Order{
		ID:               m.nextID,
		PatientFirstName: req.PatientFirstName,
		PatientLastName:  req.PatientLastName,
		DOB:              copyStr(req.DOB),
		Status:           req.Status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.orders[o.ID] = o
	out := clone(o)
	return &out, nil
}

// Get returns a copy of one order.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Maps in Go return (value, bool) when looked up; bool indicates presence.
	o, ok := m.orders[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := clone(o)
	return &out, nil
}

// Update overwrites the mutable fields of an existing order.
func (m *MemoryStore) Update(ctx context.Context, order *model.Order) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[order.ID]
	if !ok {
		return nil, model.ErrNotFound
	}
	o.PatientFirstName = order.PatientFirstName
	o.PatientLastName = order.PatientLastName
	o.DOB = copyStr(order.DOB)
	o.Status = order.Status
	o.UpdatedAt = m.now()
	out := clone(o)
	return &out, nil
}

// Delete removes an order.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

// clone returns a copy that shares no pointers with the stored order, so
// callers cannot mutate internal state.
func clone(o *model.Order) model.Order {
	out := *o
	out.DOB = copyStr(o.DOB)
	return out
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
