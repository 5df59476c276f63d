package inventory

import (
	"fmt"
	"sync"

	"lendingdesk/pkg/domain"
)

// Store owns the authoritative mapping of title to total and available copy
// counts. Counts only change through TryBorrow and Return, which keep
// 0 <= available <= totalCopies on every path; a mutation that would break
// that range fails instead of clamping.
type Store struct {
	mu     sync.RWMutex
	titles map[string]*record
	order  []string // insertion order, kept for stable reporting
}

type record struct {
	title     domain.Title
	available int
}

// TitleStatus pairs a catalog entry with its current availability.
type TitleStatus struct {
	Title     domain.Title `json:"title"`
	Available int          `json:"available"`
}

// Loaned returns the derived loan count. Purely a reporting view.
func (s TitleStatus) Loaned() int {
	return s.Title.TotalCopies - s.Available
}

// New initializes an empty inventory.
func New() *Store {
	return &Store{titles: make(map[string]*record)}
}

// AddTitle creates a catalog entry with all copies available.
func (s *Store) AddTitle(t domain.Title) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name required", domain.ErrInvalidTitle)
	}
	if t.TotalCopies < 0 {
		return fmt.Errorf("%w: total copies must be >= 0, got %d", domain.ErrInvalidTitle, t.TotalCopies)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.titles[t.Name]; exists {
		return fmt.Errorf("add %q: %w", t.Name, domain.ErrDuplicateTitle)
	}
	s.titles[t.Name] = &record{title: t, available: t.TotalCopies}
	s.order = append(s.order, t.Name)
	return nil
}

// RemoveTitle deletes the entry and its counts.
func (s *Store) RemoveTitle(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.titles[name]; !exists {
		return fmt.Errorf("remove %q: %w", name, domain.ErrTitleNotFound)
	}
	delete(s.titles, name)
	filtered := s.order[:0]
	for _, item := range s.order {
		if item != name {
			filtered = append(filtered, item)
		}
	}
	s.order = filtered
	return nil
}

// TryBorrow decrements the available count by one. It reports false with a
// nil error when no copy is free; that is a normal outcome, not an error.
// The check and the decrement happen under one lock so two callers can
// never both take the last copy.
func (s *Store) TryBorrow(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.titles[name]
	if !exists {
		return false, fmt.Errorf("borrow %q: %w", name, domain.ErrTitleNotFound)
	}
	if rec.available == 0 {
		return false, nil
	}
	rec.available--
	return true, nil
}

// Return increments the available count by one. Returning more copies than
// were lent is a caller bug and fails with ErrAllCopiesAvailable.
func (s *Store) Return(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.titles[name]
	if !exists {
		return fmt.Errorf("return %q: %w", name, domain.ErrTitleNotFound)
	}
	if rec.available == rec.title.TotalCopies {
		return fmt.Errorf("return %q: %w", name, domain.ErrAllCopiesAvailable)
	}
	rec.available++
	return nil
}

// HandOff passes a just-returned copy straight to its next borrower. The
// available count never moves, so no reader of this store can observe the
// copy as free in between. It fails with ErrAllCopiesAvailable when no copy
// is out on loan, the same over-return check Return applies.
func (s *Store) HandOff(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.titles[name]
	if !exists {
		return fmt.Errorf("hand off %q: %w", name, domain.ErrTitleNotFound)
	}
	if rec.available == rec.title.TotalCopies {
		return fmt.Errorf("hand off %q: %w", name, domain.ErrAllCopiesAvailable)
	}
	return nil
}

// IsFullyLoaned reports whether no copy of the title is free. The flag is
// computed from the count, never stored.
func (s *Store) IsFullyLoaned(name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, exists := s.titles[name]
	if !exists {
		return false, fmt.Errorf("query %q: %w", name, domain.ErrTitleNotFound)
	}
	return rec.available == 0, nil
}

// Available returns the free copy count for a title.
func (s *Store) Available(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, exists := s.titles[name]
	if !exists {
		return 0, fmt.Errorf("query %q: %w", name, domain.ErrTitleNotFound)
	}
	return rec.available, nil
}

// Get retrieves a single title with its availability.
func (s *Store) Get(name string) (TitleStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, exists := s.titles[name]
	if !exists {
		return TitleStatus{}, false
	}
	return TitleStatus{Title: rec.title, Available: rec.available}, true
}

// List returns all titles in insertion order.
func (s *Store) List() []TitleStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]TitleStatus, 0, len(s.order))
	for _, name := range s.order {
		if rec, ok := s.titles[name]; ok {
			res = append(res, TitleStatus{Title: rec.title, Available: rec.available})
		}
	}
	return res
}

// AvailabilitySnapshot returns a copy of the name -> available mapping,
// used for write-through persistence.
func (s *Store) AvailabilitySnapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]int, len(s.titles))
	for name, rec := range s.titles {
		snap[name] = rec.available
	}
	return snap
}

// Restore replaces the inventory with state loaded from durable storage.
// Titles missing from the availability map start with all copies free.
func (s *Store) Restore(titles []domain.Title, available map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = make(map[string]*record, len(titles))
	s.order = s.order[:0]
	for _, t := range titles {
		if _, exists := s.titles[t.Name]; exists {
			return fmt.Errorf("restore: %q listed twice: %w", t.Name, domain.ErrDuplicateTitle)
		}
		avail, ok := available[t.Name]
		if !ok {
			avail = t.TotalCopies
		}
		if avail < 0 || avail > t.TotalCopies {
			return fmt.Errorf("restore %q: available %d out of range [0,%d]", t.Name, avail, t.TotalCopies)
		}
		s.titles[t.Name] = &record{title: t, available: avail}
		s.order = append(s.order, t.Name)
	}
	return nil
}
