package app

import "lendingdesk/pkg/domain"

// BorrowOutcome discriminates the business result of a Borrow call.
// Unavailable and Queued are normal outcomes, not errors.
type BorrowOutcome string

const (
	// Borrowed means a copy was taken.
	Borrowed BorrowOutcome = "borrowed"
	// Queued means no copy was free and the requester joined the waiting
	// queue.
	Queued BorrowOutcome = "queued"
	// Unavailable means no copy was free and no requester was supplied.
	Unavailable BorrowOutcome = "unavailable"
)

// BorrowResult is the discriminated result of Borrow.
type BorrowResult struct {
	Outcome BorrowOutcome        `json:"outcome"`
	Entry   *domain.WaitingEntry `json:"entry,omitempty"` // set when Outcome == Queued
}

// ReturnOutcome discriminates the business result of a Return call.
type ReturnOutcome string

const (
	// ReturnedToPool means the copy became generally available.
	ReturnedToPool ReturnOutcome = "returned_to_pool"
	// ReturnedAndNotified means the copy went straight to the oldest
	// waiting requester, who was notified.
	ReturnedAndNotified ReturnOutcome = "returned_and_notified"
)

// ReturnResult is the discriminated result of Return.
type ReturnResult struct {
	Outcome   ReturnOutcome     `json:"outcome"`
	Requester *domain.Requester `json:"requester,omitempty"` // set when a waiter was served
}
