package store

import (
	"testing"
	"time"

	"lendingdesk/pkg/domain"
)

func TestFileStoreFreshDirectoryReadsEmpty(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	titles, err := fs.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(titles) != 0 {
		t.Fatalf("fresh catalog not empty: %+v", titles)
	}
	avail, err := fs.LoadAvailability()
	if err != nil {
		t.Fatalf("load availability: %v", err)
	}
	if len(avail) != 0 {
		t.Fatalf("fresh availability not empty: %+v", avail)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	titles := []domain.Title{
		{Name: "Atlas Shrugged", Author: "Rand", Genre: "Fiction", Year: 1957, TotalCopies: 3},
		{Name: "Dune", Author: "Herbert", Genre: "Sci-Fi", Year: 1965, TotalCopies: 2},
	}
	if err := fs.SaveCatalog(titles); err != nil {
		t.Fatalf("save catalog: %v", err)
	}
	if err := fs.SaveAvailability(map[string]int{"Atlas Shrugged": 1, "Dune": 2}); err != nil {
		t.Fatalf("save availability: %v", err)
	}
	at := time.Now().UTC().Truncate(time.Millisecond)
	entries := []domain.WaitingEntry{
		{ID: "a", Title: "Atlas Shrugged", Requester: domain.Requester{Name: "Alice", Email: "a@example.com"}, EnqueuedAt: at},
		{ID: "b", Title: "Atlas Shrugged", Requester: domain.Requester{Name: "Bob", Phone: "555-1234"}, EnqueuedAt: at.Add(time.Second)},
	}
	if err := fs.SaveWaitingList(entries); err != nil {
		t.Fatalf("save waiting list: %v", err)
	}
	users := []domain.User{{Username: "admin", PasswordHash: "x", CreatedAt: at}}
	if err := fs.SaveUsers(users); err != nil {
		t.Fatalf("save users: %v", err)
	}

	gotTitles, err := fs.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(gotTitles) != 2 || gotTitles[0] != titles[0] || gotTitles[1] != titles[1] {
		t.Fatalf("catalog round trip mismatch: %+v", gotTitles)
	}

	gotAvail, err := fs.LoadAvailability()
	if err != nil {
		t.Fatalf("load availability: %v", err)
	}
	if gotAvail["Atlas Shrugged"] != 1 || gotAvail["Dune"] != 2 {
		t.Fatalf("availability round trip mismatch: %+v", gotAvail)
	}

	gotEntries, err := fs.LoadWaitingList()
	if err != nil {
		t.Fatalf("load waiting list: %v", err)
	}
	if len(gotEntries) != 2 {
		t.Fatalf("waiting list length = %d, want 2", len(gotEntries))
	}
	// Queue order must survive the round trip.
	if gotEntries[0].ID != "a" || gotEntries[1].ID != "b" {
		t.Fatalf("queue order lost: %+v", gotEntries)
	}
	if gotEntries[0].Requester.Email != "a@example.com" || gotEntries[1].Requester.Phone != "555-1234" {
		t.Fatalf("contact channels lost: %+v", gotEntries)
	}
	if !gotEntries[0].EnqueuedAt.Equal(at) {
		t.Fatalf("enqueue timestamp mismatch: got %v, want %v", gotEntries[0].EnqueuedAt, at)
	}

	gotUsers, err := fs.LoadUsers()
	if err != nil {
		t.Fatalf("load users: %v", err)
	}
	if len(gotUsers) != 1 || gotUsers[0].Username != "admin" || gotUsers[0].PasswordHash != "x" {
		t.Fatalf("users round trip mismatch: %+v", gotUsers)
	}
}

func TestFileStoreSaveReplacesPreviousSnapshot(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.SaveCatalog([]domain.Title{{Name: "Dune", TotalCopies: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := fs.SaveCatalog(nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	titles, err := fs.LoadCatalog()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(titles) != 0 {
		t.Fatalf("old snapshot leaked through: %+v", titles)
	}
}
