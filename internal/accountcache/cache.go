// Package accountcache keeps the balance and recent history of local
// accounts in memory.
//
// Entries are loaded from the ledger store on first use and afterwards
// kept current by the deltas the ledger tailer publishes. The cache is
// never ahead of the tailer: a load only reads transactions up to the
// highest id the cache has been told about (its watermark), deltas that
// arrive for an account while it is loading are buffered and replayed,
// and deltas at or below the load bound are ignored.
//
//  Get(account)
//   |-- hit, not expired ----------------------------> state
//   |-- miss --> singleflight(account)
//                 |-- register pending, read watermark W
//                 |-- FindBalance(<= W), FindHistory(<= W)
//                 |-- replay buffered deltas with id > W
//                 |-- insert (unless the cursor was re-synced meanwhile)
package accountcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/hashicorp/golang-lru/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/sheikh-saqib/bank-ledger-service/internal/background"
	"github.com/sheikh-saqib/bank-ledger-service/internal/config"
	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

type entry struct {
	state    models.AccountState
	bound    int64 // deltas with id <= bound are already in state
	loadedAt time.Time
}

type delta struct {
	amount int64
	tx     models.Transaction
}

// a load in progress and the deltas it has missed so far
type pending struct {
	deltas []delta
}

// Cache is the per-account read-through cache.
type Cache struct {
	store   interfaces.LedgerStore
	routing string
	limit   int
	ttl     time.Duration
	timeout time.Duration
	log     *logger.L
	now     func() time.Time

	mu         sync.Mutex
	entries    *simplelru.LRU // account -> *entry
	loading    map[string]*pending
	watermark  int64
	synced     bool
	generation uint64

	group singleflight.Group
	bg    *background.T
}

// New creates an empty cache. A HistoryLimit of zero caches balances only.
func New(store interfaces.LedgerStore, cfg config.Config) (*Cache, error) {
	entries, err := simplelru.NewLRU(cfg.CacheMaxSize, nil)
	if err != nil {
		return nil, err
	}
	return &Cache{
		store:     store,
		routing:   cfg.LocalRoutingNumber,
		limit:     cfg.HistoryLimit,
		ttl:       cfg.CacheTTL,
		timeout:   cfg.StoreTimeout,
		log:       logger.New("accountcache"),
		now:       time.Now,
		entries:   entries,
		loading:   make(map[string]*pending),
		watermark: models.NoTransactions,
	}, nil
}

// Get returns the state of a local account, loading it on a miss.
// Concurrent misses for one account share a single load; a failed load
// leaves nothing behind so the next call tries again.
func (c *Cache) Get(ctx context.Context, account string) (models.AccountState, error) {
	c.mu.Lock()
	if e, ok := c.lookup(account); ok {
		state := e.state
		c.mu.Unlock()
		return state, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(account, func() (interface{}, error) {
		return c.load(account)
	})
	select {
	case <-ctx.Done():
		return models.AccountState{}, fault.Unavailable(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return models.AccountState{}, r.Err
		}
		return r.Val.(models.AccountState), nil
	}
}

// Balance implements interfaces.BalanceReader.
func (c *Cache) Balance(ctx context.Context, account string) (int64, error) {
	state, err := c.Get(ctx, account)
	if err != nil {
		return 0, err
	}
	return state.Balance, nil
}

// History returns the cached recent history, most recent first.
func (c *Cache) History(ctx context.Context, account string) ([]models.Transaction, error) {
	state, err := c.Get(ctx, account)
	if err != nil {
		return nil, err
	}
	return state.History, nil
}

// ApplyDelta adds amount to a cached account and records tx in its
// history. Accounts that are not cached are left alone.
func (c *Cache) ApplyDelta(account string, amount int64, tx models.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tx.ID > c.watermark {
		c.watermark = tx.ID
	}

	if p, ok := c.loading[account]; ok {
		p.deltas = append(p.deltas, delta{amount: amount, tx: tx})
	}

	v, ok := c.entries.Peek(account)
	if !ok {
		return
	}
	e := v.(*entry)
	if tx.ID <= e.bound {
		return
	}
	e.state = e.state.Apply(amount, tx, c.limit)
}

// Process implements tailer.Subscriber.
func (c *Cache) Process(account string, amount int64, tx models.Transaction) {
	c.ApplyDelta(account, amount, tx)
}

// SyncCursor implements tailer.CursorObserver. Everything cached so far
// was loaded without a known bound, so it is dropped.
func (c *Cache) SyncCursor(cursor int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.watermark = cursor
	c.synced = true
	c.generation++
	c.entries.Purge()
	c.log.Infof("synchronised at cursor: %d", cursor)
}

// Invalidate drops one account; the next Get reloads it.
func (c *Cache) Invalidate(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(account)
}

// Len is the number of cached accounts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// lookup must be called with mu held.
func (c *Cache) lookup(account string) (*entry, bool) {
	v, ok := c.entries.Get(account)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if c.expired(e) {
		c.entries.Remove(account)
		return nil, false
	}
	return e, true
}

func (c *Cache) expired(e *entry) bool {
	return c.now().Sub(e.loadedAt) > c.ttl
}

func (c *Cache) load(account string) (models.AccountState, error) {
	c.mu.Lock()
	if e, ok := c.lookup(account); ok {
		state := e.state
		c.mu.Unlock()
		return state, nil
	}
	p := &pending{}
	c.loading[account] = p
	bound := models.Unbounded
	if c.synced {
		bound = c.watermark
	}
	generation := c.generation
	c.mu.Unlock()

	state, err := c.fetch(account, bound)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loading[account] == p {
		delete(c.loading, account)
	}
	if err != nil {
		c.log.Warnf("load %s failed: %s", account, err)
		return models.AccountState{}, fmt.Errorf("load %s: %w", account, err)
	}

	for _, d := range p.deltas {
		if d.tx.ID > bound {
			state = state.Apply(d.amount, d.tx, c.limit)
		}
	}

	if generation == c.generation {
		c.entries.Add(account, &entry{
			state:    state,
			bound:    bound,
			loadedAt: c.now(),
		})
	}
	c.log.Debugf("loaded %s: bound: %d  balance: %d", account, bound, state.Balance)
	return state, nil
}

func (c *Cache) fetch(account string, bound int64) (models.AccountState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	balance, err := c.store.FindBalance(ctx, account, c.routing, bound)
	if err != nil {
		return models.AccountState{}, fault.Unavailable(err)
	}
	state := models.AccountState{
		Balance: balance,
		AsOf:    bound,
	}
	if c.limit > 0 {
		history, err := c.store.FindHistory(ctx, account, c.routing, bound, c.limit)
		if err != nil {
			return models.AccountState{}, fault.Unavailable(err)
		}
		state.History = history
	}
	return state, nil
}
