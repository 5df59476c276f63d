package notify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"lendingdesk/pkg/domain"
)

// Multi fans a single logical notice out to several channels concurrently.
// Every channel is attempted regardless of other channels' failures; the
// first error (if any) is reported back.
type Multi struct {
	channels []Notifier
}

// NewMulti builds a fan-out notifier. Nil channels are skipped.
func NewMulti(channels ...Notifier) *Multi {
	out := make([]Notifier, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			out = append(out, c)
		}
	}
	return &Multi{channels: out}
}

// Notify delivers on all channels.
func (m *Multi) Notify(ctx context.Context, req domain.Requester, title string) error {
	var g errgroup.Group
	for _, c := range m.channels {
		c := c
		g.Go(func() error {
			return c.Notify(ctx, req, title)
		})
	}
	return g.Wait()
}
