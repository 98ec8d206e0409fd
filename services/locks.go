package services

import "sync"

// keyedLocks serializes operations on a single identity (one payment, one
// ticket) without a registry-wide lock. Entries are dropped once the last
// holder or waiter releases, so the map stays proportional to in-flight
// operations, not to identities ever seen.
type keyedLocks struct {
	mutex sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*lockEntry)}
}

func (l *keyedLocks) lock(key string) func() {
	l.mutex.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mutex.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mutex.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mutex.Unlock()
	}
}
