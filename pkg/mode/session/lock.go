package session

import (
	"context"
	"sync"
)

// semaphore is a mutex that can be acquired with a context
type semaphore struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex serializes work per key while letting distinct keys proceed in parallel.
// Entries are dropped once nobody holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*semaphore
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*semaphore)}
}

// Lock blocks until key is free or ctx is done. The returned func releases the lock and
// must be called exactly once.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	sem, ok := k.locks[key]
	if !ok {
		sem = &semaphore{ch: make(chan struct{}, 1)}
		sem.ch <- struct{}{}
		k.locks[key] = sem
	}
	sem.refs++
	k.mu.Unlock()

	select {
	case <-sem.ch:
		var once sync.Once
		return func() {
			once.Do(func() {
				sem.ch <- struct{}{}
				k.release(key, sem)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, sem)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) release(key string, sem *semaphore) {
	k.mu.Lock()
	defer k.mu.Unlock()
	sem.refs--
	if sem.refs == 0 {
		delete(k.locks, key)
	}
}

// Len returns the number of keys currently held or awaited
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
