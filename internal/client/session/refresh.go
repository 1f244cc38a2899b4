package session

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Coordinator collapses concurrent refresh attempts into one network round
// trip. Whoever arrives while a refresh is in flight waits for that flight's
// outcome instead of starting another, so the server sees at most one
// refresh per expiry and every waiter observes the same result.
type Coordinator struct {
	group   singleflight.Group
	timeout time.Duration
	mgr     *Manager
}

func newCoordinator(mgr *Manager, timeout time.Duration) *Coordinator {
	return &Coordinator{mgr: mgr, timeout: timeout}
}

// Refresh runs (or joins) the single in-flight refresh. The actual round
// trip uses a detached context with its own timeout: its outcome is shared
// by every waiter, so one caller's cancellation must not fail the rest.
// The caller's own context still bounds how long this call waits.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ch := c.group.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return nil, c.mgr.doRefresh(rctx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
