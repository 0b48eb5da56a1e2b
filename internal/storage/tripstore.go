package storage

import (
	"sync"

	"github.com/example/roadside-dispatch/internal/models"
)

// TripStore persists completed trips. The session ledger stays
// in-memory; this is the durable record behind it, written
// best-effort.
type TripStore interface {
	SaveTrip(t *models.CompletedTrip) error
}

type MemoryStore struct {
	mu    sync.RWMutex
	trips []*models.CompletedTrip
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveTrip(t *models.CompletedTrip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = append(m.trips, t)
	return nil
}

func (m *MemoryStore) Trips() []*models.CompletedTrip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.CompletedTrip, len(m.trips))
	copy(out, m.trips)
	return out
}
