package waitlist

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lendingdesk/pkg/domain"
)

// Queue holds the per-title FIFO lists of requesters awaiting the next
// freed copy. Entries are served strictly in enqueue order; there is no
// deduplication, so a requester who asks twice appears twice.
type Queue struct {
	mu      sync.RWMutex
	entries map[string][]domain.WaitingEntry
}

// New initializes an empty queue set.
func New() *Queue {
	return &Queue{entries: make(map[string][]domain.WaitingEntry)}
}

// Enqueue appends a requester to the tail of the title's list and returns
// the stamped entry.
func (q *Queue) Enqueue(title string, r domain.Requester) domain.WaitingEntry {
	entry := domain.WaitingEntry{
		ID:         uuid.NewString(),
		Title:      title,
		Requester:  r,
		EnqueuedAt: time.Now().UTC(),
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[title] = append(q.entries[title], entry)
	return entry
}

// PeekOldest returns the head entry without removing it.
func (q *Queue) PeekOldest(title string) (domain.WaitingEntry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	list := q.entries[title]
	if len(list) == 0 {
		return domain.WaitingEntry{}, false
	}
	return list[0], true
}

// DequeueOldest removes and returns the head entry.
func (q *Queue) DequeueOldest(title string) (domain.WaitingEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.entries[title]
	if len(list) == 0 {
		return domain.WaitingEntry{}, false
	}
	head := list[0]
	rest := list[1:]
	if len(rest) == 0 {
		delete(q.entries, title)
	} else {
		q.entries[title] = rest
	}
	return head, true
}

// ClearTitle removes every entry for a title and returns them in queue
// order. Used when a title leaves the catalog; the caller decides whether
// the removed requesters hear about it (by default they do not).
func (q *Queue) ClearTitle(title string) []domain.WaitingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := q.entries[title]
	delete(q.entries, title)
	return removed
}

// Count returns the number of pending entries for a title.
func (q *Queue) Count(title string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries[title])
}

// Snapshot returns all entries for persistence. Per-title FIFO order is
// preserved; titles are emitted in sorted order so output is deterministic.
func (q *Queue) Snapshot() []domain.WaitingEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	titles := make([]string, 0, len(q.entries))
	for title := range q.entries {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	var snap []domain.WaitingEntry
	for _, title := range titles {
		snap = append(snap, q.entries[title]...)
	}
	return snap
}

// Restore replaces queue contents with entries loaded from durable storage,
// preserving the given per-title order.
func (q *Queue) Restore(entries []domain.WaitingEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[string][]domain.WaitingEntry)
	for _, e := range entries {
		q.entries[e.Title] = append(q.entries[e.Title], e)
	}
}
