package probe

import (
	"context"
	"time"
)

// WaitUntilReady polls url at interval until it reports healthy, the
// backend exits, or ctx is cancelled. It returns true only for the healthy
// outcome. The ticker is stopped before return so no probe is issued after
// resolution.
//
// exited carries the supervised backend's exit; a nil channel disables
// that terminal condition (used when probing a foreign instance).
func (c *Checker) WaitUntilReady(ctx context.Context, url string, interval time.Duration, exited <-chan error) bool {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-exited:
			return false
		case <-t.C:
			if c.Check(ctx, url) {
				return true
			}
		}
	}
}
