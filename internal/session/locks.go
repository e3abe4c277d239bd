package session

import (
	"sync"

	"github.com/google/uuid"
)

// Locks hands out one mutex per session id. Entries are dropped once nobody holds or
// waits on them, so the map only grows with concurrently active sessions.
type Locks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock blocks until the session's mutex is held and returns its release func.
func (l *Locks) Lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}

func (l *Locks) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
