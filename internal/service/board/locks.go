package board

import "sync"

// columnLocks is a keyed mutex with one entry per (workspace, status)
// column. Entries are dropped when no goroutine holds or waits on them.
type columnLocks struct {
	mu      sync.Mutex
	entries map[string]*columnLock
}

type columnLock struct {
	mu   sync.Mutex
	refs int
}

func newColumnLocks() *columnLocks {
	return &columnLocks{entries: make(map[string]*columnLock)}
}

// lock blocks until key is held and returns the matching unlock.
func (l *columnLocks) lock(key string) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &columnLock{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

func (l *columnLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
