package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_SubscribeCancel(t *testing.T) {
	n := New()

	ch, cancel := n.Subscribe()
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Listeners())

	cancel()
	assert.Equal(t, 0, n.Listeners())

	_, open := <-ch
	assert.False(t, open, "channel should be closed after cancel")

	// second cancel is a no-op
	cancel()
}

func TestNotifier_Broadcast(t *testing.T) {
	n := New()

	a, cancelA := n.Subscribe()
	defer cancelA()
	b, cancelB := n.Subscribe()
	defer cancelB()

	n.Broadcast()

	for _, ch := range []<-chan struct{}{a, b} {
		select {
		case <-ch:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("listener did not receive broadcast")
		}
	}
	assert.Equal(t, uint64(1), n.Broadcasts())
}

func TestNotifier_BroadcastCoalesces(t *testing.T) {
	n := New()
	ch, cancel := n.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range 5 {
			n.Broadcast()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}

	<-ch
	select {
	case <-ch:
		t.Fatal("pings should coalesce into one")
	default:
	}
	assert.Equal(t, uint64(5), n.Broadcasts())
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, cancel := n.Subscribe()
			n.Broadcast()
			cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.Listeners())
}
