package storage

import (
	"sync"

	"github.com/example/ride-booking/internal/models"
)

// TripStore defines persistence operations for rides.
type TripStore interface {
	SaveRide(r *models.Ride) error
	UpdateRide(r *models.Ride) error
	GetRide(id string) (*models.Ride, bool)
}

type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]*models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]*models.Ride)}
}

func (m *MemoryStore) SaveRide(r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateRide(r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

// GetRide returns a snapshot copy so callers can mutate and re-save
// without racing each other on the stored struct.
func (m *MemoryStore) GetRide(id string) (*models.Ride, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}
