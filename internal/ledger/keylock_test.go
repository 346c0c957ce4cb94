package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLocksSerialiseAndRelease(t *testing.T) {
	k := newKeyLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.lock("key")
			counter++
			k.unlock("key")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, k.size())
}

func TestKeyLocksIndependentKeys(t *testing.T) {
	k := newKeyLocks()

	k.lock("a")
	k.lock("b")
	assert.Equal(t, 2, k.size())
	k.unlock("b")
	k.unlock("a")
	assert.Equal(t, 0, k.size())
}
