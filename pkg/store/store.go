package store

import "lendingdesk/pkg/domain"

// Store is the durable persistence port. The engine loads once at startup
// and writes through after every state-changing operation. The only
// contract is round-trip fidelity: a save followed by a load reproduces
// identical available counts and queue order.
type Store interface {
	LoadCatalog() ([]domain.Title, error)
	LoadAvailability() (map[string]int, error)
	LoadWaitingList() ([]domain.WaitingEntry, error)
	LoadUsers() ([]domain.User, error)

	SaveCatalog([]domain.Title) error
	SaveAvailability(map[string]int) error
	SaveWaitingList([]domain.WaitingEntry) error
	SaveUsers([]domain.User) error
}
