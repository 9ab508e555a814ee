// Package locking serializes work on a single key, typically a conversation id.
package locking

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when a lock could not be acquired within the wait timeout.
var ErrBusy = errors.New("locking: key is busy")

// Locker grants exclusive access to a key. The returned unlock func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Local is an in-process keyed mutex. Entries are dropped once no caller holds
// or waits on them, so idle keys cost nothing.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns a Local locker. A zero wait blocks until ctx is done.
func NewLocal(wait time.Duration) *Local {
	return &Local{entries: make(map[string]*localEntry), wait: wait}
}

// Lock implements Locker.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	case <-timeout:
		l.release(key, entry)
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(key, entry)
		})
	}, nil
}

func (l *Local) release(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
