// Package sync keeps every observer of the order list (badge, list, dashboard,
// SSE clients) on one shared snapshot, refreshed by a single synchronizer.
package sync

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	apporder "github.com/pos/backend/internal/application/order"
)

// Snapshot is a full view of the order list at one point in time
type Snapshot struct {
	Version      uint64                   `json:"version"`
	Orders       []apporder.OrderResponse `json:"orders"`
	PendingCount int64                    `json:"pending_count"`
	RefreshedAt  time.Time                `json:"refreshed_at"`
	// Optimistic is true while a local mutation awaits the store.
	Optimistic bool `json:"optimistic"`
}

// Listener receives every published snapshot. It runs on the publishing
// goroutine and must not block.
type Listener func(Snapshot)

// OrderStore holds the latest snapshot and fans it out to listeners. Only the
// Synchronizer writes to it.
type OrderStore struct {
	mu        sync.RWMutex
	snapshot  Snapshot
	listeners map[uint64]Listener
	nextID    uint64
}

// NewOrderStore creates an empty store
func NewOrderStore() *OrderStore {
	return &OrderStore{
		snapshot:  Snapshot{Orders: []apporder.OrderResponse{}},
		listeners: make(map[uint64]Listener),
	}
}

// Snapshot returns the current snapshot
func (s *OrderStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Subscribe registers a listener for future snapshots. The returned func
// removes it and is safe to call more than once.
func (s *OrderStore) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// ListenerCount returns the number of active listeners
func (s *OrderStore) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// publish replaces the snapshot and notifies listeners outside the lock.
func (s *OrderStore) publish(next Snapshot) Snapshot {
	s.mu.Lock()
	next.Version = s.snapshot.Version + 1
	if next.Orders == nil {
		next.Orders = []apporder.OrderResponse{}
	}
	s.snapshot = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// edit publishes a modified copy of the current snapshot.
func (s *OrderStore) edit(fn func(*Snapshot)) Snapshot {
	current := s.Snapshot()
	current.Orders = slices.Clone(current.Orders)
	fn(&current)
	return s.publish(current)
}

func indexOf(orders []apporder.OrderResponse, id uuid.UUID) int {
	return slices.IndexFunc(orders, func(o apporder.OrderResponse) bool { return o.ID == id })
}
