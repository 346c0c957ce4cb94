package accountcache

import (
	"time"

	"github.com/sheikh-saqib/bank-ledger-service/internal/background"
)

const minimumSweepInterval = time.Second

type expiry struct {
	cache *Cache
}

// Start runs the background sweep that removes expired entries.
func (c *Cache) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bg != nil {
		return
	}
	c.bg = background.Start(background.Processes{&expiry{cache: c}}, nil)
}

// Stop ends the expiry sweep.
func (c *Cache) Stop() {
	c.mu.Lock()
	bg := c.bg
	c.bg = nil
	c.mu.Unlock()
	bg.Stop()
}

func (x *expiry) Run(_ interface{}, shutdown <-chan struct{}) {
	interval := x.cache.ttl / 2
	if interval < minimumSweepInterval {
		interval = minimumSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			if n := x.cache.deleteExpired(); n > 0 {
				x.cache.log.Debugf("expired %d entries", n)
			}
		}
	}
}

func (c *Cache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, key := range c.entries.Keys() {
		v, ok := c.entries.Peek(key)
		if ok && c.expired(v.(*entry)) {
			c.entries.Remove(key)
			n++
		}
	}
	return n
}
