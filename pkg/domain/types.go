package domain

import "time"

// Title is one catalog entry. Copies of a title are interchangeable; there
// is no per-copy identity, due date, or fine tracking.
type Title struct {
	Name        string `json:"name"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Year        int    `json:"year"`
	TotalCopies int    `json:"totalCopies"`
}

// Requester identifies who is asking for a copy and how to reach them when
// one frees up.
type Requester struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// WaitingEntry is one requester's claim on the next freed copy of a title.
// Entries for a title are served strictly in enqueue order.
type WaitingEntry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Requester  Requester `json:"requester"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// User is a registered account for the caller-facing API.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
