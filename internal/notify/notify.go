// Package notify pushes status transitions to external channels. Sends are
// best-effort: a delivery failure is logged by callers and never affects the
// monitoring cycle or the alert log.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/znetops/netmon/internal/status"
)

// Notifier delivers one transition event to an external channel.
type Notifier interface {
	Send(ctx context.Context, ev status.AlertEvent) error
}

// Multi fans one event out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, ev status.AlertEvent) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Cooled wraps a notifier with a per-target cooldown, suppressing repeat
// sends for the same target inside the window.
type Cooled struct {
	inner    Notifier
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// WithCooldown wraps n so at most one event per target is delivered per
// cooldown window. A zero cooldown disables suppression.
func WithCooldown(n Notifier, cooldown time.Duration) *Cooled {
	return &Cooled{
		inner:    n,
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
	}
}

func (c *Cooled) Send(ctx context.Context, ev status.AlertEvent) error {
	if c.cooldown > 0 {
		c.mu.Lock()
		last, exists := c.lastSent[ev.Name]
		if exists && time.Since(last) < c.cooldown {
			c.mu.Unlock()
			return nil
		}
		c.lastSent[ev.Name] = time.Now()
		c.mu.Unlock()
	}
	return c.inner.Send(ctx, ev)
}
