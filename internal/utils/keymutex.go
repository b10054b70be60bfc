package utils

import "sync"

// KeyMutex serializes operations per string key. The trackers use it to make
// their cache read-modify-write cycles safe against concurrent writers on the
// same record; writers on different keys do not contend.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{
		locks: make(map[string]*keyLock),
	}
}

// Lock acquires the lock for key, creating it on first use.
func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()
}

// Unlock releases the lock for key and frees it once no waiter remains.
func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic("utils: unlock of unlocked key " + key)
	}
	lock.refs--
	if lock.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	lock.mu.Unlock()
}
