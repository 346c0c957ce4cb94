package accountcache

import "time"

func (c *Cache) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache) DeleteExpired() int {
	return c.deleteExpired()
}
