// Package idempotency remembers which transaction a request key produced
// so that retried submissions are answered without appending again.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

// Entry is what a request key resolved to.
type Entry struct {
	TransactionID int64
	Fingerprint   string
	CreatedAt     time.Time
}

// Cache maps request keys to entries for a limited time.
type Cache interface {
	Get(key string) (Entry, bool)
	Put(key string, e Entry)
	Len() int
	Clear()
}

type dedupCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) Cache {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &dedupCache{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (c *dedupCache) Get(key string) (Entry, bool) {
	obj, found := c.cache.Get(key)
	if !found {
		return Entry{}, false
	}
	return obj.(Entry), true
}

func (c *dedupCache) Put(key string, e Entry) {
	c.cache.Set(key, e, c.ttl)
}

func (c *dedupCache) Len() int {
	return c.cache.ItemCount()
}

func (c *dedupCache) Clear() {
	c.cache.Flush()
}

// Fingerprint identifies the payload submitted under a request key.
func Fingerprint(tx models.Transaction) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%d",
		tx.FromAccount, tx.FromRouting, tx.ToAccount, tx.ToRouting, tx.Amount)))
	return hex.EncodeToString(h[:])
}
