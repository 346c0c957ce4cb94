package background_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sheikh-saqib/bank-ledger-service/internal/background"
)

const (
	initialCount1 = 246
	finalCount1   = 987654321
	initialCount2 = 777
	finalCount2   = 897645312
)

type bg struct {
	initial int64
	final   int64
	count   int64
}

func (state *bg) Run(args interface{}, shutdown <-chan struct{}) {
	t := args.(*testing.T)
	if atomic.LoadInt64(&state.count) != state.initial {
		t.Errorf("initialisation failed: unexpected initial count: %d", state.count)
	}

loop:
	for {
		select {
		case <-shutdown:
			break loop
		default:
		}
		atomic.AddInt64(&state.count, 9)
		time.Sleep(time.Millisecond)
	}
	atomic.StoreInt64(&state.count, state.final)
}

type early struct{}

func (early) Run(_ interface{}, _ <-chan struct{}) {}

func TestBackground(t *testing.T) {
	proc1 := &bg{initial: initialCount1, final: finalCount1, count: initialCount1}
	proc2 := &bg{initial: initialCount2, final: finalCount2, count: initialCount2}

	p := background.Start(background.Processes{proc1, proc2, early{}}, t)
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	assert.Equal(t, int64(finalCount1), atomic.LoadInt64(&proc1.count), "stop failed for process 1")
	assert.Equal(t, int64(finalCount2), atomic.LoadInt64(&proc2.count), "stop failed for process 2")
}

func TestStopNil(t *testing.T) {
	var p *background.T
	p.Stop()
}
