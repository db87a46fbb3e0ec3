package session

import (
	"context"
	"sync"
	"time"
)

// Scoped holds one value per browser session. Values idle for longer than
// the TTL are evicted by Sweep.
type Scoped[T any] struct {
	mu    sync.Mutex
	items map[string]*scopedItem[T]
	newFn func() T
	ttl   time.Duration
	now   func() time.Time
}

type scopedItem[T any] struct {
	value    T
	lastSeen time.Time
}

func NewScoped[T any](ttl time.Duration, newFn func() T) *Scoped[T] {
	return &Scoped[T]{
		items: make(map[string]*scopedItem[T]),
		newFn: newFn,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the value for sid, creating it on first use.
func (s *Scoped[T]) Get(sid string) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[sid]
	if !ok {
		it = &scopedItem[T]{value: s.newFn()}
		s.items[sid] = it
	}
	it.lastSeen = s.now()
	return it.value
}

// Update replaces the value for sid with fn applied to the current one.
func (s *Scoped[T]) Update(sid string, fn func(T) T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[sid]
	if !ok {
		it = &scopedItem[T]{value: s.newFn()}
		s.items[sid] = it
	}
	it.value = fn(it.value)
	it.lastSeen = s.now()
}

// Take removes and returns the value for sid.
func (s *Scoped[T]) Take(sid string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[sid]
	if !ok {
		var zero T
		return zero, false
	}
	delete(s.items, sid)
	return it.value, true
}

func (s *Scoped[T]) Delete(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sid)
}

// Sweep evicts idle values and reports how many were removed.
func (s *Scoped[T]) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for sid, it := range s.items {
		if it.lastSeen.Before(cutoff) {
			delete(s.items, sid)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Scoped[T]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
