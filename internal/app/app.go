package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"lendingdesk/internal/inventory"
	"lendingdesk/internal/waitlist"
	"lendingdesk/pkg/domain"
	"lendingdesk/pkg/notify"
	"lendingdesk/pkg/store"
)

// Config wires the engine's collaborators. Store is required; a nil
// Notifier disables delivery (state transitions still happen).
type Config struct {
	Store    store.Store
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// Engine orchestrates borrow/return/add/remove workflows over the
// inventory and the waiting queue. It owns no state of its own beyond the
// per-title locks; counts live in the inventory, queue entries in the
// waitlist.
//
// All mutating operations on one title are mutually exclusive; operations
// on different titles proceed in parallel. Notifications are dispatched
// only after the title lock is released so a slow channel never stalls
// circulation.
type Engine struct {
	inv      *inventory.Store
	queue    *waitlist.Queue
	store    store.Store
	notifier notify.Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*titleLock
}

// New constructs the engine and reloads state from the durable store.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		inv:      inventory.New(),
		queue:    waitlist.New(),
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   logger,
		locks:    make(map[string]*titleLock),
	}

	titles, err := cfg.Store.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	available, err := cfg.Store.LoadAvailability()
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	entries, err := cfg.Store.LoadWaitingList()
	if err != nil {
		return nil, fmt.Errorf("load waiting list: %w", err)
	}
	if err := e.inv.Restore(titles, available); err != nil {
		return nil, err
	}
	e.queue.Restore(entries)
	return e, nil
}

// titleLock is a reference-counted per-title mutex. Holders and waiters
// both count as references, so an entry is only dropped from the table
// once the last of them releases; the table never grows with titles that
// are no longer in flight.
type titleLock struct {
	mu   sync.Mutex
	refs int
}

func (e *Engine) acquire(title string) *titleLock {
	e.mu.Lock()
	lock, ok := e.locks[title]
	if !ok {
		lock = &titleLock{}
		e.locks[title] = lock
	}
	lock.refs++
	e.mu.Unlock()
	lock.mu.Lock()
	return lock
}

func (e *Engine) release(title string, lock *titleLock) {
	lock.mu.Unlock()
	e.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(e.locks, title)
	}
	e.mu.Unlock()
}

// AddTitle registers a catalog entry with all copies available.
func (e *Engine) AddTitle(ctx context.Context, t domain.Title) error {
	lock := e.acquire(t.Name)
	defer e.release(t.Name, lock)

	if err := e.inv.AddTitle(t); err != nil {
		return err
	}
	return e.persist(persistCatalog | persistAvailability)
}

// RemoveTitle deletes the entry and purges its waiting queue. Cleared
// requesters are not notified.
func (e *Engine) RemoveTitle(ctx context.Context, name string) error {
	lock := e.acquire(name)
	defer e.release(name, lock)

	if err := e.inv.RemoveTitle(name); err != nil {
		return err
	}
	if removed := e.queue.ClearTitle(name); len(removed) > 0 {
		e.logger.Info("waiting entries purged with title",
			"title", name, "entries", len(removed))
	}
	return e.persist(persistCatalog | persistAvailability | persistWaitingList)
}

// Borrow takes one copy for the caller. When no copy is free and a
// requester is supplied, the requester joins the title's waiting queue;
// with no requester the caller simply learns the title is unavailable and
// may retry later.
func (e *Engine) Borrow(ctx context.Context, title string, req *domain.Requester) (BorrowResult, error) {
	lock := e.acquire(title)
	defer e.release(title, lock)

	ok, err := e.inv.TryBorrow(title)
	if err != nil {
		return BorrowResult{}, err
	}
	if ok {
		return BorrowResult{Outcome: Borrowed}, e.persist(persistAvailability)
	}
	if req == nil {
		return BorrowResult{Outcome: Unavailable}, nil
	}
	entry := e.queue.Enqueue(title, *req)
	return BorrowResult{Outcome: Queued, Entry: &entry}, e.persist(persistWaitingList)
}

// Return gives a copy back. With a non-empty waiting queue the freed copy
// is handed straight to the oldest waiter via the inventory's HandOff,
// which validates and completes the transfer without the available count
// ever moving, so no reader of any query can see the copy as free in
// between. With an empty queue the copy rejoins the pool.
func (e *Engine) Return(ctx context.Context, title string) (ReturnResult, error) {
	lock := e.acquire(title)

	var result ReturnResult
	var entry domain.WaitingEntry
	served := false
	if _, waiting := e.queue.PeekOldest(title); waiting {
		if err := e.inv.HandOff(title); err != nil {
			e.release(title, lock)
			return ReturnResult{}, err
		}
		entry, _ = e.queue.DequeueOldest(title)
		served = true
		result = ReturnResult{Outcome: ReturnedAndNotified, Requester: &entry.Requester}
	} else {
		if err := e.inv.Return(title); err != nil {
			e.release(title, lock)
			return ReturnResult{}, err
		}
		result = ReturnResult{Outcome: ReturnedToPool}
	}

	set := persistAvailability
	if served {
		// A hand-off leaves counts untouched; only the queue changed.
		set = persistWaitingList
	}
	persistErr := e.persist(set)
	e.release(title, lock)

	if served {
		e.dispatch(ctx, entry, title)
	}
	return result, persistErr
}

// dispatch delivers the availability notice outside any title lock.
// Failures are logged, never retried; the reassignment stands.
func (e *Engine) dispatch(ctx context.Context, entry domain.WaitingEntry, title string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, entry.Requester, title); err != nil {
		e.logger.Error("notification failed",
			"title", title, "requester", entry.Requester.Name, "err", err)
		return
	}
	e.logger.Info("requester notified", "title", title, "requester", entry.Requester.Name)
}

// IsAvailable reports whether at least one copy of the title is free.
func (e *Engine) IsAvailable(title string) (bool, error) {
	loaned, err := e.inv.IsFullyLoaned(title)
	if err != nil {
		return false, err
	}
	return !loaned, nil
}

// AvailableCount returns the free copy count for a title.
func (e *Engine) AvailableCount(title string) (int, error) {
	return e.inv.Available(title)
}

// WaitingCount returns the number of queued requesters for a title.
func (e *Engine) WaitingCount(title string) (int, error) {
	if _, ok := e.inv.Get(title); !ok {
		return 0, fmt.Errorf("query %q: %w", title, domain.ErrTitleNotFound)
	}
	return e.queue.Count(title), nil
}

// TitleInfo is the caller-facing view of one catalog entry.
type TitleInfo struct {
	domain.Title
	Available int `json:"available"`
	Loaned    int `json:"loaned"`
	Waiting   int `json:"waiting"`
}

// Titles lists the catalog with availability and queue depth, in the order
// titles were first added.
func (e *Engine) Titles() []TitleInfo {
	list := e.inv.List()
	out := make([]TitleInfo, 0, len(list))
	for _, st := range list {
		out = append(out, TitleInfo{
			Title:     st.Title,
			Available: st.Available,
			Loaned:    st.Loaned(),
			Waiting:   e.queue.Count(st.Title.Name),
		})
	}
	return out
}

// Title returns the caller-facing view of a single entry.
func (e *Engine) Title(name string) (TitleInfo, error) {
	st, ok := e.inv.Get(name)
	if !ok {
		return TitleInfo{}, fmt.Errorf("query %q: %w", name, domain.ErrTitleNotFound)
	}
	return TitleInfo{
		Title:     st.Title,
		Available: st.Available,
		Loaned:    st.Loaned(),
		Waiting:   e.queue.Count(name),
	}, nil
}

// PopularityEntry ranks one title by demand.
type PopularityEntry struct {
	TitleInfo
	Score int `json:"score"`
}

// PopularityReport ranks titles by loaned + waiting, descending. Ties keep
// first-added order. At most topN entries are returned.
func (e *Engine) PopularityReport(topN int) []PopularityEntry {
	if topN <= 0 {
		return nil
	}
	infos := e.Titles()
	entries := make([]PopularityEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, PopularityEntry{
			TitleInfo: info,
			Score:     info.Loaned + info.Waiting,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}

type persistSet uint8

const (
	persistCatalog persistSet = 1 << iota
	persistAvailability
	persistWaitingList
)

// persist writes the selected snapshots through to the durable store. A
// failed write is wrapped in ErrPersistenceFailed and surfaced, but the
// in-memory mutation is not rolled back; memory stays authoritative.
func (e *Engine) persist(set persistSet) error {
	if set&persistCatalog != 0 {
		list := e.inv.List()
		titles := make([]domain.Title, 0, len(list))
		for _, st := range list {
			titles = append(titles, st.Title)
		}
		if err := e.store.SaveCatalog(titles); err != nil {
			return fmt.Errorf("%w: save catalog: %v", domain.ErrPersistenceFailed, err)
		}
	}
	if set&persistAvailability != 0 {
		if err := e.store.SaveAvailability(e.inv.AvailabilitySnapshot()); err != nil {
			return fmt.Errorf("%w: save availability: %v", domain.ErrPersistenceFailed, err)
		}
	}
	if set&persistWaitingList != 0 {
		if err := e.store.SaveWaitingList(e.queue.Snapshot()); err != nil {
			return fmt.Errorf("%w: save waiting list: %v", domain.ErrPersistenceFailed, err)
		}
	}
	return nil
}
