package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

// Subscription receives values published on a Topic.
type Subscription[T any] struct {
	ch      chan T
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	detach  func()
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Dropped returns how many values were discarded because the buffer was full.
func (s *Subscription[T]) Dropped() uint64 { return s.dropped.Load() }

// Close ends the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		close(s.done)
		s.mu.Unlock()
	})
}

func (s *Subscription[T]) offer(v T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- v:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Topic is an in-memory fan-out point. Safe for concurrent use.
type Topic[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	buffer int
	closed bool
	wg     sync.WaitGroup
}

// NewTopic creates a topic whose subscriptions buffer up to buffer values
// (at least 1).
func NewTopic[T any](buffer int) *Topic[T] {
	return &Topic[T]{
		subs:   make(map[*Subscription[T]]struct{}),
		buffer: max(buffer, 1),
	}
}

// Subscribe registers a subscription that ends when ctx is done. Subscribing
// to a closed topic returns an already closed subscription.
func (t *Topic[T]) Subscribe(ctx context.Context) *Subscription[T] {
	sub := &Subscription[T]{ch: make(chan T, t.buffer), done: make(chan struct{})}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		sub.Close()
		return sub
	}
	t.subs[sub] = struct{}{}
	sub.detach = func() { t.remove(sub) }
	done := ctx.Done()
	if done != nil {
		t.wg.Add(1)
	}
	t.mu.Unlock()

	if done != nil {
		go func() {
			defer t.wg.Done()
			select {
			case <-done:
				sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub
}

// Publish offers v to every subscription and returns how many accepted it.
func (t *Topic[T]) Publish(_ context.Context, v T) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return 0
	}
	delivered := 0
	for sub := range t.subs {
		if sub.offer(v) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of live subscriptions.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Close ends every subscription. Later Publish calls are no-ops.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	subs := make([]*Subscription[T], 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	clear(t.subs)
	t.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	t.wg.Wait()
}

func (t *Topic[T]) remove(sub *Subscription[T]) {
	t.mu.Lock()
	delete(t.subs, sub)
	t.mu.Unlock()
}
