package catalog

import (
	"context"
	"sync"
	"time"
)

// visitTracker provides thread-safe visited URL tracking to prevent cycles
// in pathological catalog trees.
type visitTracker struct {
	seen sync.Map
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
func (t *visitTracker) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	_, loaded := t.seen.LoadOrStore(url, struct{}{})
	return !loaded
}

// pause sleeps for the politeness delay, returning early on cancellation.
// The delay is a throttle to avoid hammering the origin server, not a
// correctness mechanism.
func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
