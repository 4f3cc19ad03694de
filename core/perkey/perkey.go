// Package perkey serializes work sharing a key while work for different keys
// runs concurrently. The manager uses it to make check-then-save sequences
// atomic per tenant within one process.
package perkey

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("perkey: closed")

type slot struct {
	sem  chan struct{}
	refs int
}

// Mutex hands out one lock per key. Idle keys hold no memory.
type Mutex[K comparable] struct {
	mu     sync.Mutex
	slots  map[K]*slot
	closed bool
	wg     sync.WaitGroup
}

func New[K comparable]() *Mutex[K] {
	return &Mutex[K]{slots: make(map[K]*slot)}
}

// Do runs fn on the calling goroutine once it holds the lock for key. It
// returns ctx's error without running fn when ctx ends first.
func (m *Mutex[K]) Do(ctx context.Context, key K, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := m.acquire(key)
	if err != nil {
		return err
	}
	defer m.release(key, s)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()
	return fn()
}

// Close rejects further Do calls and waits for running ones.
func (m *Mutex[K]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
}

// Len reports the number of keys currently held or awaited.
func (m *Mutex[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func (m *Mutex[K]) acquire(key K) (*slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	s, ok := m.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.wg.Add(1)
	return s, nil
}

func (m *Mutex[K]) release(key K, s *slot) {
	m.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
	m.mu.Unlock()
	m.wg.Done()
}
