package store

import (
	"sync"

	"lendingdesk/pkg/domain"
)

// MemoryStore keeps snapshots in-process. It backs tests and no-database
// deployments where durability is not needed.
type MemoryStore struct {
	mu        sync.RWMutex
	catalog   []domain.Title
	available map[string]int
	waiting   []domain.WaitingEntry
	users     []domain.User
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{available: make(map[string]int)}
}

// LoadCatalog returns the saved catalog snapshot.
func (m *MemoryStore) LoadCatalog() ([]domain.Title, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Title(nil), m.catalog...), nil
}

// LoadAvailability returns the saved name -> available mapping.
func (m *MemoryStore) LoadAvailability() (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.available))
	for k, v := range m.available {
		out[k] = v
	}
	return out, nil
}

// LoadWaitingList returns the saved waiting entries in saved order.
func (m *MemoryStore) LoadWaitingList() ([]domain.WaitingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.WaitingEntry(nil), m.waiting...), nil
}

// LoadUsers returns the saved accounts.
func (m *MemoryStore) LoadUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.User(nil), m.users...), nil
}

// SaveCatalog replaces the catalog snapshot.
func (m *MemoryStore) SaveCatalog(titles []domain.Title) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = append([]domain.Title(nil), titles...)
	return nil
}

// SaveAvailability replaces the availability snapshot.
func (m *MemoryStore) SaveAvailability(available map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(available))
	for k, v := range available {
		out[k] = v
	}
	m.available = out
	return nil
}

// SaveWaitingList replaces the waiting-list snapshot.
func (m *MemoryStore) SaveWaitingList(entries []domain.WaitingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waiting = append([]domain.WaitingEntry(nil), entries...)
	return nil
}

// SaveUsers replaces the accounts snapshot.
func (m *MemoryStore) SaveUsers(users []domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append([]domain.User(nil), users...)
	return nil
}
