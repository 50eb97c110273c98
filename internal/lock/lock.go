package lock

import (
	"context"
	"sync"
)

// Locker serializes work on a key across callers. The returned func releases
// the lock and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewMemory returns a Locker that only serializes callers inside this process.
func NewMemory() Locker {
	return &keyedMutex{locks: make(map[string]*entry)}
}

func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { k.release(key, e, true) })
	}, nil
}

func (k *keyedMutex) release(key string, e *entry, held bool) {
	if held {
		<-e.ch
	}
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
