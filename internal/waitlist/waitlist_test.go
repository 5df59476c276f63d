package waitlist

import (
	"testing"

	"lendingdesk/pkg/domain"
)

func TestFIFOOrder(t *testing.T) {
	q := New()
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		q.Enqueue("Atlas", domain.Requester{Name: name})
	}
	if got := q.Count("Atlas"); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}

	head, ok := q.PeekOldest("Atlas")
	if !ok || head.Requester.Name != "Alice" {
		t.Fatalf("peek = %+v, %v; want Alice", head, ok)
	}
	// Peek must not consume.
	if got := q.Count("Atlas"); got != 3 {
		t.Fatalf("count after peek = %d, want 3", got)
	}

	for _, want := range []string{"Alice", "Bob", "Carol"} {
		entry, ok := q.DequeueOldest("Atlas")
		if !ok {
			t.Fatalf("dequeue: queue empty, want %s", want)
		}
		if entry.Requester.Name != want {
			t.Fatalf("dequeued %q, want %q", entry.Requester.Name, want)
		}
	}
	if _, ok := q.DequeueOldest("Atlas"); ok {
		t.Fatalf("dequeue on empty queue succeeded")
	}
}

func TestDuplicateRequestersAreKept(t *testing.T) {
	q := New()
	q.Enqueue("Atlas", domain.Requester{Name: "Bob"})
	q.Enqueue("Atlas", domain.Requester{Name: "Bob"})
	if got := q.Count("Atlas"); got != 2 {
		t.Fatalf("count = %d, want 2 (no deduplication)", got)
	}
}

func TestClearTitleReturnsEntriesInOrder(t *testing.T) {
	q := New()
	q.Enqueue("Atlas", domain.Requester{Name: "Alice"})
	q.Enqueue("Atlas", domain.Requester{Name: "Bob"})
	q.Enqueue("Dune", domain.Requester{Name: "Carol"})

	removed := q.ClearTitle("Atlas")
	if len(removed) != 2 || removed[0].Requester.Name != "Alice" || removed[1].Requester.Name != "Bob" {
		t.Fatalf("unexpected cleared entries: %+v", removed)
	}
	if got := q.Count("Atlas"); got != 0 {
		t.Fatalf("count after clear = %d, want 0", got)
	}
	if got := q.Count("Dune"); got != 1 {
		t.Fatalf("other title touched by clear: count = %d, want 1", got)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	q := New()
	q.Enqueue("Atlas", domain.Requester{Name: "Alice"})
	q.Enqueue("Atlas", domain.Requester{Name: "Bob"})
	q.Enqueue("Dune", domain.Requester{Name: "Carol"})

	snap := q.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(snap))
	}

	restored := New()
	restored.Restore(snap)
	first, ok := restored.DequeueOldest("Atlas")
	if !ok || first.Requester.Name != "Alice" {
		t.Fatalf("restored head = %+v, %v; want Alice", first, ok)
	}
	second, ok := restored.DequeueOldest("Atlas")
	if !ok || second.Requester.Name != "Bob" {
		t.Fatalf("restored second = %+v, %v; want Bob", second, ok)
	}
	if restored.Count("Dune") != 1 {
		t.Fatalf("restored Dune count = %d, want 1", restored.Count("Dune"))
	}
}
