package session

import "sync"

// KeyedMutex serializes operations per conversation. All mutations for a
// given conversation must run under its lock so a double-submit cannot race
// two merges against the same state.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*conversationLock),
	}
}

// Lock acquires the lock for the conversation and returns its unlock
// function. Lock entries are reference counted and removed once unused.
func (k *KeyedMutex) Lock(conversationID string) func() {
	k.mu.Lock()

	lock, ok := k.locks[conversationID]
	if !ok {
		lock = &conversationLock{}
		k.locks[conversationID] = lock
	}

	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		k.mu.Lock()
		lock.refs--

		if lock.refs == 0 {
			delete(k.locks, conversationID)
		}
		k.mu.Unlock()
	}
}
