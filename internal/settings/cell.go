package settings

import (
	"sync"
	"sync/atomic"
)

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

type subscriber[T any] struct {
	id     uint64
	fn     func(T)
	active atomic.Bool
	// since is the Set sequence number the first call reflects; rounds at
	// or before it are skipped for this subscriber.
	since uint64
}

// delivery is one queued notification. A delivery with a target only goes
// to that subscriber and carries its first call.
type delivery[T any] struct {
	seq    uint64
	value  T
	target *subscriber[T]
}

// Cell is a single observable value. Subscribers are notified on every Set,
// in the order they subscribed.
//
// Notifications are delivered by whichever goroutine started the current
// notification round. A Set or Subscribe made while a round is in progress
// (including one issued from inside a subscriber) takes effect immediately
// and is delivered once the running round finishes.
type Cell[T comparable] struct {
	mu       sync.Mutex
	value    T
	seq      uint64
	subs     []*subscriber[T]
	nextID   uint64
	pending  []delivery[T]
	dispatch bool
}

// NewCell returns a cell holding initial.
func NewCell[T comparable](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set replaces the value and notifies subscribers.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	c.seq++
	c.pending = append(c.pending, delivery[T]{seq: c.seq, value: v})
	c.run()
}

// Subscribe registers fn and calls it with the current value. The call is
// made before Subscribe returns unless another goroutine is delivering, in
// which case that goroutine makes it ahead of any later change.
// The returned func must be called when the subscriber goes away, otherwise
// the cell keeps a reference to fn for its whole lifetime.
func (c *Cell[T]) Subscribe(fn func(T)) Unsubscribe {
	c.mu.Lock()
	c.nextID++
	s := &subscriber[T]{id: c.nextID, fn: fn, since: c.seq}
	s.active.Store(true)
	c.subs = append(c.subs, s)
	c.pending = append(c.pending, delivery[T]{seq: c.seq, value: c.value, target: s})
	c.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.active.Store(false)
			c.remove(s.id)
		})
	}
}

// run drains the pending queue unless a round is already in progress. It is
// called with c.mu held and returns with it released.
func (c *Cell[T]) run() {
	if c.dispatch {
		c.mu.Unlock()
		return
	}
	c.dispatch = true

	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		subs := []*subscriber[T]{next.target}
		if next.target == nil {
			subs = make([]*subscriber[T], len(c.subs))
			copy(subs, c.subs)
		}
		c.mu.Unlock()

		for _, s := range subs {
			if next.target == nil && next.seq <= s.since {
				continue
			}
			if s.active.Load() {
				s.fn(next.value)
			}
		}

		c.mu.Lock()
	}

	c.pending = nil
	c.dispatch = false
	c.mu.Unlock()
}

// Subscribers reports the number of live subscriptions.
func (c *Cell[T]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Cell[T]) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}
