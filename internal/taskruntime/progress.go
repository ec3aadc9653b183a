package taskruntime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// coalescer rate-limits progress event emission per task so subscribers
// see at most one update per the configured interval, per §4.7.
type coalescer struct {
	interval time.Duration
	mu       sync.Mutex
	lastSent map[uuid.UUID]time.Time
}

func newCoalescer(interval time.Duration) *coalescer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &coalescer{interval: interval, lastSent: make(map[uuid.UUID]time.Time)}
}

// allow reports whether a progress event for taskID may be emitted now,
// recording now as the new last-sent time if so.
func (c *coalescer) allow(taskID uuid.UUID, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastSent[taskID]
	if ok && now.Sub(last) < c.interval {
		return false
	}
	c.lastSent[taskID] = now
	return true
}

// forget drops taskID's coalescing state once its job has finished.
func (c *coalescer) forget(taskID uuid.UUID) {
	c.mu.Lock()
	delete(c.lastSent, taskID)
	c.mu.Unlock()
}
