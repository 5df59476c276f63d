package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"lendingdesk/pkg/domain"
)

const (
	catalogFile      = "catalog.csv"
	availabilityFile = "availability.csv"
	waitingListFile  = "waiting_list.csv"
	usersFile        = "users.csv"
)

// FileStore persists snapshots as CSV files under a base directory. Missing
// files read as empty state so a fresh directory is a valid empty library.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("file store base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// LoadCatalog reads catalog.csv.
func (f *FileStore) LoadCatalog() ([]domain.Title, error) {
	rows, err := f.readRows(catalogFile)
	if err != nil || rows == nil {
		return nil, err
	}
	titles := make([]domain.Title, 0, len(rows))
	for i, row := range rows {
		if len(row) != 5 {
			return nil, fmt.Errorf("%s row %d: expected 5 fields, got %d", catalogFile, i+1, len(row))
		}
		year, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad year %q", catalogFile, i+1, row[3])
		}
		copies, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad total_copies %q", catalogFile, i+1, row[4])
		}
		titles = append(titles, domain.Title{
			Name:        row[0],
			Author:      row[1],
			Genre:       row[2],
			Year:        year,
			TotalCopies: copies,
		})
	}
	return titles, nil
}

// LoadAvailability reads availability.csv.
func (f *FileStore) LoadAvailability() (map[string]int, error) {
	rows, err := f.readRows(availabilityFile)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%s row %d: expected 2 fields, got %d", availabilityFile, i+1, len(row))
		}
		n, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad available %q", availabilityFile, i+1, row[1])
		}
		out[row[0]] = n
	}
	return out, nil
}

// LoadWaitingList reads waiting_list.csv; row order is queue order.
func (f *FileStore) LoadWaitingList() ([]domain.WaitingEntry, error) {
	rows, err := f.readRows(waitingListFile)
	if err != nil || rows == nil {
		return nil, err
	}
	entries := make([]domain.WaitingEntry, 0, len(rows))
	for i, row := range rows {
		if len(row) != 6 {
			return nil, fmt.Errorf("%s row %d: expected 6 fields, got %d", waitingListFile, i+1, len(row))
		}
		at, err := time.Parse(time.RFC3339Nano, row[5])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad enqueued_at %q", waitingListFile, i+1, row[5])
		}
		entries = append(entries, domain.WaitingEntry{
			ID:    row[0],
			Title: row[1],
			Requester: domain.Requester{
				Name:  row[2],
				Email: row[3],
				Phone: row[4],
			},
			EnqueuedAt: at,
		})
	}
	return entries, nil
}

// LoadUsers reads users.csv.
func (f *FileStore) LoadUsers() ([]domain.User, error) {
	rows, err := f.readRows(usersFile)
	if err != nil || rows == nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("%s row %d: expected 3 fields, got %d", usersFile, i+1, len(row))
		}
		at, err := time.Parse(time.RFC3339Nano, row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad created_at %q", usersFile, i+1, row[2])
		}
		users = append(users, domain.User{Username: row[0], PasswordHash: row[1], CreatedAt: at})
	}
	return users, nil
}

// SaveCatalog writes catalog.csv.
func (f *FileStore) SaveCatalog(titles []domain.Title) error {
	rows := make([][]string, 0, len(titles))
	for _, t := range titles {
		rows = append(rows, []string{
			t.Name, t.Author, t.Genre,
			strconv.Itoa(t.Year), strconv.Itoa(t.TotalCopies),
		})
	}
	return f.writeRows(catalogFile,
		[]string{"name", "author", "genre", "year", "total_copies"}, rows)
}

// SaveAvailability writes availability.csv.
func (f *FileStore) SaveAvailability(available map[string]int) error {
	names := make([]string, 0, len(available))
	for name := range available {
		names = append(names, name)
	}
	// Deterministic output keeps the file diff-friendly.
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(available[name])})
	}
	return f.writeRows(availabilityFile, []string{"name", "available"}, rows)
}

// SaveWaitingList writes waiting_list.csv preserving queue order.
func (f *FileStore) SaveWaitingList(entries []domain.WaitingEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID, e.Title, e.Requester.Name, e.Requester.Email, e.Requester.Phone,
			e.EnqueuedAt.Format(time.RFC3339Nano),
		})
	}
	return f.writeRows(waitingListFile,
		[]string{"id", "title", "requester", "email", "phone", "enqueued_at"}, rows)
}

// SaveUsers writes users.csv.
func (f *FileStore) SaveUsers(users []domain.User) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return f.writeRows(usersFile, []string{"username", "password_hash", "created_at"}, rows)
}

// readRows returns data rows (header stripped), or nil when the file does
// not exist yet.
func (f *FileStore) readRows(name string) ([][]string, error) {
	file, err := os.Open(filepath.Join(f.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil
}

// writeRows writes header + rows to a temp file and renames it into place
// so a crash mid-write never leaves a truncated snapshot.
func (f *FileStore) writeRows(name string, header []string, rows [][]string) error {
	target := filepath.Join(f.basePath, name)
	tmp, err := os.CreateTemp(f.basePath, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	w := csv.NewWriter(tmp)
	writeErr := w.Write(header)
	if writeErr == nil {
		writeErr = w.WriteAll(rows)
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, writeErr)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
