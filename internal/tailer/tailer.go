// Package tailer follows the ledger store and hands every new transaction
// to a single subscriber, once per local side, in ascending id order.
//
// The cursor only moves forward. If the store reports a latest id below
// the cursor the ledger has been truncated or replaced; the tailer stops
// for good and reports itself not alive so that the process is restarted
// rather than resumed from an ambiguous position.
package tailer

import (
	"context"
	"fmt"
	"sync"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/bitmark-inc/logger"
	"golang.org/x/time/rate"

	"github.com/sheikh-saqib/bank-ledger-service/internal/background"
	"github.com/sheikh-saqib/bank-ledger-service/internal/config"
	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

// minimum gap between repeated store-unreachable warnings
const warnEvery = 10 * time.Second

// Subscriber is told about each local side of a transaction: once with a
// negative delta for a local sender and once with a positive delta for a
// local receiver.
type Subscriber interface {
	Process(account string, delta int64, tx models.Transaction)
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func(account string, delta int64, tx models.Transaction)

func (f SubscriberFunc) Process(account string, delta int64, tx models.Transaction) {
	f(account, delta, tx)
}

// CursorObserver is implemented by subscribers that need to know the
// cursor the tailer starts from. SyncCursor is called once, before the
// first Process call.
type CursorObserver interface {
	SyncCursor(cursor int64)
}

// Tailer polls the ledger store for transactions past its cursor.
type Tailer struct {
	store   interfaces.LedgerStore
	routing string
	poll    time.Duration
	timeout time.Duration
	log     *logger.L
	warn    *rate.Limiter

	mu         sync.Mutex // guards start and stop
	subscriber Subscriber
	bg         *background.T

	cursor int64 // atomic, written only by the polling goroutine after start
	state  int32 // atomic State
	alive  int32 // atomic bool
}

// New creates an unstarted tailer.
func New(store interfaces.LedgerStore, cfg config.Config) *Tailer {
	return &Tailer{
		store:   store,
		routing: cfg.LocalRoutingNumber,
		poll:    cfg.PollInterval,
		timeout: cfg.StoreTimeout,
		log:     logger.New("tailer"),
		warn:    rate.NewLimiter(rate.Every(warnEvery), 1),
		cursor:  models.NoTransactions,
	}
}

// Start initialises the cursor from the store's latest id and begins
// polling. An unreachable store is not fatal: the cursor stays at
// models.NoTransactions and the whole ledger is delivered once the
// store answers.
func (t *Tailer) Start(ctx context.Context, subscriber Subscriber) error {
	if isNil(subscriber) {
		return fault.ErrInvalidState
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State() != Unstarted {
		return fault.ErrInvalidState
	}

	cursor := models.NoTransactions
	initCtx, cancel := context.WithTimeout(ctx, t.timeout)
	latest, err := t.store.LatestTransactionID(initCtx)
	cancel()
	if err != nil {
		t.log.Warnf("store unreachable at start, tailing from the beginning: %s", err)
	} else {
		cursor = latest
	}

	if observer, ok := subscriber.(CursorObserver); ok {
		observer.SyncCursor(cursor)
	}

	atomic.StoreInt64(&t.cursor, cursor)
	t.subscriber = subscriber
	atomic.StoreInt32(&t.alive, 1)
	t.setState(Running)

	t.log.Infof("started: cursor: %d  poll interval: %s", cursor, t.poll)
	t.bg = background.Start(background.Processes{t}, nil)
	return nil
}

// Stop ends polling and waits for the loop to return.
func (t *Tailer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bg == nil {
		return
	}
	t.bg.Stop()
	t.bg = nil
	if t.State() == Running {
		t.setState(Stopped)
	}
	t.log.Info("stopped")
	t.log.Flush()
}

// Cursor returns the id of the last transaction fully processed.
func (t *Tailer) Cursor() int64 {
	return atomic.LoadInt64(&t.cursor)
}

// IsAlive is false once the polling loop has ended for any reason.
func (t *Tailer) IsAlive() bool {
	return atomic.LoadInt32(&t.alive) == 1
}

// State returns the current lifecycle state.
func (t *Tailer) State() State {
	return State(atomic.LoadInt32(&t.state))
}

func (t *Tailer) setState(s State) {
	atomic.StoreInt32(&t.state, int32(s))
}

// Run is the polling loop; it implements background.Process.
func (t *Tailer) Run(_ interface{}, shutdown <-chan struct{}) {
	defer atomic.StoreInt32(&t.alive, 0)
	defer func() {
		if r := recover(); r != nil {
			t.setState(Crashed)
			t.log.Criticalf("polling loop crashed at cursor %d: %v", t.Cursor(), r)
			t.log.Flush()
		}
	}()

	timer := time.NewTimer(t.poll)
	defer timer.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-timer.C:
		}

		err := t.pollOnce()
		switch {
		case err == nil:
		case fault.IsErrFatal(err):
			t.setState(OutOfSync)
			t.log.Criticalf("%s", err)
			t.log.Flush()
			return
		case t.warn.Allow():
			t.log.Warnf("poll failed, retrying: %s", err)
		default:
			t.log.Debugf("poll failed, retrying: %s", err)
		}
		timer.Reset(t.poll)
	}
}

// pollOnce delivers everything past the cursor.
func (t *Tailer) pollOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	cursor := t.Cursor()

	remote, err := t.store.LatestTransactionID(ctx)
	if err != nil {
		return fault.Unavailable(err)
	}
	if remote < cursor {
		return fmt.Errorf("%w: latest id %d is behind cursor %d", fault.ErrOutOfSync, remote, cursor)
	}
	if remote == cursor {
		return nil
	}

	txs, err := t.store.FindAfter(ctx, cursor)
	if err != nil {
		return fault.Unavailable(err)
	}

	for _, tx := range txs {
		if tx.ID <= cursor {
			return fmt.Errorf("%w: store returned id %d at cursor %d", fault.ErrOutOfSync, tx.ID, cursor)
		}
		t.publish(tx)
		cursor = tx.ID
		atomic.StoreInt64(&t.cursor, cursor)
	}
	if len(txs) > 0 {
		t.log.Debugf("delivered %d transactions, cursor: %d", len(txs), cursor)
	}
	return nil
}

func (t *Tailer) publish(tx models.Transaction) {
	if tx.FromRouting == t.routing {
		t.subscriber.Process(tx.FromAccount, -tx.Amount, tx)
	}
	if tx.ToRouting == t.routing {
		t.subscriber.Process(tx.ToAccount, tx.Amount, tx)
	}
}

// isNil also catches typed nils such as SubscriberFunc(nil) or a nil
// pointer receiver.
func isNil(subscriber Subscriber) bool {
	if subscriber == nil {
		return true
	}
	v := reflect.ValueOf(subscriber)
	switch v.Kind() {
	case reflect.Func, reflect.Ptr, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
