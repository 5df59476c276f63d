package notify

import (
	"context"
	"fmt"

	"lendingdesk/pkg/domain"
)

// Notifier delivers an availability notice to a requester. The engine calls
// exactly one logical Notify per served waiting entry; fan-out across
// channels is an implementation concern (see Multi). Delivery is
// best-effort: a failure is logged by the caller and never retried or
// rolled back by the core.
type Notifier interface {
	Notify(ctx context.Context, req domain.Requester, title string) error
}

// Message renders the notice body shared by all channels.
func Message(req domain.Requester, title string) string {
	return fmt.Sprintf(
		"Dear %s, the book %q is now available for you. Please visit the library to borrow it.",
		req.Name, title,
	)
}
