// Package notifier fans a "something changed" ping out to open SSE streams.
// The dev server uses it to tell every open page that the client bundle was
// rebuilt.
package notifier

import "sync"

// Notifier broadcasts pings to all subscribed listeners. A ping carries no
// payload; listeners re-read whatever they are watching.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
	sent      uint64
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives pings and a cancel func that
// removes it. cancel is safe to call more than once and must be called when
// the listener goes away.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, ch)
			n.mu.Unlock()
			close(ch)
		})
	}
}

// Broadcast pings every listener. A listener that already has a ping
// pending is skipped, so pings coalesce and Broadcast never blocks.
func (n *Notifier) Broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent++
	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listeners reports how many listeners are subscribed.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcasts reports how many times Broadcast has been called.
func (n *Notifier) Broadcasts() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sent
}
