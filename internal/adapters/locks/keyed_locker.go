package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"courier-market-service/internal/domain"
)

// In-process implementation of the PackageLocker port. One channel-based
// mutex per package id; entries are reference counted so ids that nobody
// holds or waits on are dropped from the map.
type KeyedLocker struct {
	mu             sync.Mutex
	entries        map[string]*lockEntry
	acquireTimeout time.Duration
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedLocker(acquireTimeout time.Duration) *KeyedLocker {
	return &KeyedLocker{
		entries:        make(map[string]*lockEntry),
		acquireTimeout: acquireTimeout,
	}
}

// Acquire the lock for a package id. Returns domain.ErrBusy when the lock is
// not obtained within the acquisition timeout, or the context error when ctx
// ends first. The release function must be called exactly once.
func (l *KeyedLocker) Acquire(ctx context.Context, packageID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[packageID]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[packageID] = e
	}
	e.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.acquireTimeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			l.unref(packageID, e)
		}, nil
	case <-timer.C:
		l.unref(packageID, e)
		return nil, fmt.Errorf("acquire lock for package %s: %w", packageID, domain.ErrBusy)
	case <-ctx.Done():
		l.unref(packageID, e)
		return nil, fmt.Errorf("acquire lock for package %s: %w", packageID, ctx.Err())
	}
}

func (l *KeyedLocker) unref(packageID string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, packageID)
	}
	l.mu.Unlock()
}
