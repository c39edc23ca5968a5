package sources

import (
	"sync"
	"time"
)

// Cooldowns remembers endpoints that answered with a permanent error so
// later cycles skip them until the window passes.
type Cooldowns struct {
	mu     sync.Mutex
	until  map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewCooldowns(window time.Duration) *Cooldowns {
	return &Cooldowns{
		until:  make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// Active returns the expiry of a running cooldown for key.
func (c *Cooldowns) Active(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.until[key]
	if !ok {
		return time.Time{}, false
	}
	if !c.now().Before(until) {
		delete(c.until, key)
		return time.Time{}, false
	}
	return until, true
}

// Mark starts a cooldown for key.
func (c *Cooldowns) Mark(key string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	until := c.now().Add(c.window)
	c.until[key] = until
	return until
}
