// internal/repository/memory/locker.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/repository"
)

// Locker is an in-process repository.Locker. It only excludes holders
// inside one process; use the Redis locker to coordinate several drivers.
type Locker struct {
	mu    sync.Mutex
	held  map[string]uint64
	seq   uint64
	freed chan struct{} // closed and replaced on every release
}

// NewLocker creates an empty in-memory locker.
func NewLocker() *Locker {
	return &Locker{
		held:  make(map[string]uint64),
		freed: make(chan struct{}),
	}
}

// Lock implements repository.Locker. The TTL is honoured: an entry older
// than ttl is treated as abandoned.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (repository.UnlockFunc, error) {
	for {
		l.mu.Lock()
		if _, busy := l.held[key]; !busy {
			l.seq++
			token := l.seq
			l.held[key] = token
			l.mu.Unlock()

			if ttl > 0 {
				time.AfterFunc(ttl, func() { l.release(key, token) })
			}
			return func(context.Context) error {
				l.release(key, token)
				return nil
			}, nil
		}
		wait := l.freed
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// release frees key only if token still owns it.
func (l *Locker) release(key string, token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return
	}
	delete(l.held, key)
	close(l.freed)
	l.freed = make(chan struct{})
}
