package inventory

import (
	"errors"
	"sync"
	"testing"

	"lendingdesk/pkg/domain"
)

func TestAddTitleRejectsDuplicates(t *testing.T) {
	s := New()
	if err := s.AddTitle(domain.Title{Name: "Dune", Author: "Herbert", TotalCopies: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := s.AddTitle(domain.Title{Name: "Dune", Author: "Herbert", TotalCopies: 1})
	if !errors.Is(err, domain.ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle, got %v", err)
	}
}

func TestBorrowAndReturnKeepCountsInRange(t *testing.T) {
	s := New()
	if err := s.AddTitle(domain.Title{Name: "Dune", TotalCopies: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := s.TryBorrow("Dune")
		if err != nil || !ok {
			t.Fatalf("borrow %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := s.TryBorrow("Dune")
	if err != nil {
		t.Fatalf("borrow on empty: %v", err)
	}
	if ok {
		t.Fatalf("borrowed a third copy of a two-copy title")
	}
	loaned, err := s.IsFullyLoaned("Dune")
	if err != nil || !loaned {
		t.Fatalf("IsFullyLoaned = %v, %v; want true", loaned, err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Return("Dune"); err != nil {
			t.Fatalf("return %d: %v", i, err)
		}
	}
	err = s.Return("Dune")
	if !errors.Is(err, domain.ErrAllCopiesAvailable) {
		t.Fatalf("over-return: expected ErrAllCopiesAvailable, got %v", err)
	}
	if n, _ := s.Available("Dune"); n != 2 {
		t.Fatalf("available = %d, want 2", n)
	}
}

func TestAddTitleValidatesInput(t *testing.T) {
	s := New()
	if err := s.AddTitle(domain.Title{Name: "", TotalCopies: 1}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("empty name: expected ErrInvalidTitle, got %v", err)
	}
	if err := s.AddTitle(domain.Title{Name: "Dune", TotalCopies: -1}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("negative copies: expected ErrInvalidTitle, got %v", err)
	}
}

func TestHandOffLeavesCountUnchanged(t *testing.T) {
	s := New()
	if err := s.AddTitle(domain.Title{Name: "Dune", TotalCopies: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Nothing lent out yet: a hand-off has no copy to pass along.
	if err := s.HandOff("Dune"); !errors.Is(err, domain.ErrAllCopiesAvailable) {
		t.Fatalf("expected ErrAllCopiesAvailable, got %v", err)
	}

	if ok, err := s.TryBorrow("Dune"); err != nil || !ok {
		t.Fatalf("borrow: ok=%v err=%v", ok, err)
	}
	if err := s.HandOff("Dune"); err != nil {
		t.Fatalf("hand off: %v", err)
	}
	if n, _ := s.Available("Dune"); n != 1 {
		t.Fatalf("available after hand-off = %d, want 1", n)
	}

	if err := s.HandOff("ghost"); !errors.Is(err, domain.ErrTitleNotFound) {
		t.Fatalf("unknown title: expected ErrTitleNotFound, got %v", err)
	}
}

func TestUnknownTitleSurfacesNotFound(t *testing.T) {
	s := New()
	if _, err := s.TryBorrow("ghost"); !errors.Is(err, domain.ErrTitleNotFound) {
		t.Fatalf("borrow: expected ErrTitleNotFound, got %v", err)
	}
	if err := s.Return("ghost"); !errors.Is(err, domain.ErrTitleNotFound) {
		t.Fatalf("return: expected ErrTitleNotFound, got %v", err)
	}
	if err := s.RemoveTitle("ghost"); !errors.Is(err, domain.ErrTitleNotFound) {
		t.Fatalf("remove: expected ErrTitleNotFound, got %v", err)
	}
	if _, err := s.Available("ghost"); !errors.Is(err, domain.ErrTitleNotFound) {
		t.Fatalf("available: expected ErrTitleNotFound, got %v", err)
	}
}

func TestConcurrentBorrowNeverOversells(t *testing.T) {
	s := New()
	const copies = 5
	if err := s.AddTitle(domain.Title{Name: "Atlas", TotalCopies: copies}); err != nil {
		t.Fatalf("add: %v", err)
	}

	const callers = 50
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.TryBorrow("Atlas")
			if err != nil {
				t.Errorf("borrow: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	borrowed := 0
	for ok := range results {
		if ok {
			borrowed++
		}
	}
	if borrowed != copies {
		t.Fatalf("borrowed %d copies, want exactly %d", borrowed, copies)
	}
	if n, _ := s.Available("Atlas"); n != 0 {
		t.Fatalf("available = %d, want 0", n)
	}
}

func TestListKeepsInsertionOrder(t *testing.T) {
	s := New()
	names := []string{"Charlie", "Alpha", "Bravo"}
	for _, name := range names {
		if err := s.AddTitle(domain.Title{Name: name, TotalCopies: 1}); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	list := s.List()
	if len(list) != len(names) {
		t.Fatalf("list length = %d, want %d", len(list), len(names))
	}
	for i, name := range names {
		if list[i].Title.Name != name {
			t.Fatalf("list[%d] = %q, want %q", i, list[i].Title.Name, name)
		}
	}

	if err := s.RemoveTitle("Alpha"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list = s.List()
	if len(list) != 2 || list[0].Title.Name != "Charlie" || list[1].Title.Name != "Bravo" {
		t.Fatalf("unexpected order after removal: %+v", list)
	}
}

func TestRestoreValidatesCounts(t *testing.T) {
	s := New()
	titles := []domain.Title{{Name: "Dune", TotalCopies: 3}}

	if err := s.Restore(titles, map[string]int{"Dune": 5}); err == nil {
		t.Fatalf("expected error for available > totalCopies")
	}
	if err := s.Restore(titles, map[string]int{"Dune": 1}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n, _ := s.Available("Dune"); n != 1 {
		t.Fatalf("available = %d, want 1", n)
	}

	// Missing availability entry defaults to all copies free.
	if err := s.Restore(titles, nil); err != nil {
		t.Fatalf("restore without availability: %v", err)
	}
	if n, _ := s.Available("Dune"); n != 3 {
		t.Fatalf("available = %d, want 3", n)
	}
}
