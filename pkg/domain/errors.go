package domain

import "errors"

var (
	// ErrTitleNotFound indicates the title is not in the catalog.
	ErrTitleNotFound = errors.New("title not found")
	// ErrInvalidTitle rejects a catalog entry that fails validation. No
	// state changes when it is returned.
	ErrInvalidTitle = errors.New("invalid title")
	// ErrDuplicateTitle indicates an add for a title that already exists.
	ErrDuplicateTitle = errors.New("title already exists")
	// ErrAllCopiesAvailable indicates a return without a matching borrow.
	// It signals a caller-side bookkeeping bug and is never auto-corrected.
	ErrAllCopiesAvailable = errors.New("all copies already available")
	// ErrPersistenceFailed wraps a failed durable write. The in-memory state
	// is still authoritative; callers should alert an operator, not retry
	// the mutation.
	ErrPersistenceFailed = errors.New("persistence failed")
)
