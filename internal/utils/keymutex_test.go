package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutex_SerializesPerKey(t *testing.T) {
	km := NewKeyMutex()

	// One counter per key; only the per-key lock guards each slot.
	counters := [2]int{}
	keys := [2]string{"a", "b"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		slot := i % 2
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			km.Lock(keys[slot])
			counters[slot]++
			km.Unlock(keys[slot])
		}(slot)
	}
	wg.Wait()

	assert.Equal(t, 50, counters[0])
	assert.Equal(t, 50, counters[1])
}

func TestKeyMutex_FreesIdleKeys(t *testing.T) {
	km := NewKeyMutex()

	km.Lock("a")
	km.Unlock("a")

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}

func TestKeyMutex_UnlockWithoutLockPanics(t *testing.T) {
	km := NewKeyMutex()

	assert.Panics(t, func() {
		km.Unlock("never-locked")
	})
}
