// Package accounts manages librarian accounts and their sessions.
package accounts

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lendingdesk/pkg/domain"
	"lendingdesk/pkg/store"
)

var (
	// ErrUserExists reports a registration with a taken username.
	ErrUserExists = errors.New("username already exists")
	// ErrInvalidCredentials reports a failed login. It deliberately does
	// not distinguish an unknown user from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Manager registers and authenticates accounts, writing every change
// through to the durable store.
type Manager struct {
	store store.Store

	mu    sync.RWMutex
	users map[string]domain.User
}

// NewManager reloads accounts from the store.
func NewManager(s store.Store) (*Manager, error) {
	loaded, err := s.LoadUsers()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := make(map[string]domain.User, len(loaded))
	for _, u := range loaded {
		users[u.Username] = u
	}
	return &Manager{store: s, users: users}, nil
}

// Register creates an account with a bcrypt-hashed password.
func (m *Manager) Register(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.users[username]; taken {
		return ErrUserExists
	}
	m.users[username] = domain.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.store.SaveUsers(m.snapshotLocked()); err != nil {
		return fmt.Errorf("%w: save users: %v", domain.ErrPersistenceFailed, err)
	}
	return nil
}

// Authenticate checks a username/password pair.
func (m *Manager) Authenticate(username, password string) error {
	m.mu.RLock()
	u, ok := m.users[username]
	m.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (m *Manager) snapshotLocked() []domain.User {
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
