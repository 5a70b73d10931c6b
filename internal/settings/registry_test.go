package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu      sync.Mutex
	data    map[string]Preferences
	saves   int
	loadErr error
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string]Preferences)}
}

func (m *memPersister) LoadPreferences(_ context.Context, id string) (Preferences, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Preferences{}, false, m.loadErr
	}
	p, ok := m.data[id]
	return p, ok, nil
}

func (m *memPersister) SavePreferences(_ context.Context, id string, p Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = p
	m.saves++
	return nil
}

func TestRegistry_StorePerSession(t *testing.T) {
	r := NewRegistry(nil, nil)
	defer r.Close()
	ctx := context.Background()

	a, err := r.Store(ctx, "a")
	require.NoError(t, err)
	b, err := r.Store(ctx, "b")
	require.NoError(t, err)
	again, err := r.Store(ctx, "a")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Len())

	a.TextToSpeech.Set(true)
	assert.False(t, b.TextToSpeech.Get(), "sessions must not share state")
}

func TestRegistry_LoadsAndPersists(t *testing.T) {
	p := newMemPersister()
	p.data["known"] = Preferences{ShakeDetection: true, SelectedVoice: "en-AU"}

	r := NewRegistry(p, nil)
	defer r.Close()
	ctx := context.Background()

	s, err := r.Store(ctx, "known")
	require.NoError(t, err)
	assert.Equal(t, Preferences{ShakeDetection: true, SelectedVoice: "en-AU"}, s.Snapshot())
	assert.Equal(t, 0, p.saves, "loading must not write back")

	s.TextToSpeech.Set(true)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 1, p.saves)
	assert.Equal(t, Preferences{ShakeDetection: true, TextToSpeech: true, SelectedVoice: "en-AU"}, p.data["known"])
}

func TestRegistry_NewSessionGetsDefaults(t *testing.T) {
	r := NewRegistry(newMemPersister(), nil)
	defer r.Close()

	s, err := r.Store(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences(), s.Snapshot())
}

func TestRegistry_LoadError(t *testing.T) {
	p := newMemPersister()
	p.loadErr = errors.New("disk on fire")

	r := NewRegistry(p, nil)
	defer r.Close()

	_, err := r.Store(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_CloseStopsPersisting(t *testing.T) {
	p := newMemPersister()
	r := NewRegistry(p, nil)

	s, err := r.Store(context.Background(), "x")
	require.NoError(t, err)
	r.Close()

	s.ShakeDetection.Set(true)
	assert.Equal(t, 0, p.saves)
	assert.Equal(t, 0, r.Len())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistry_PruneDropsIdleStores(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRegistry(nil, nil, WithIdleTimeout(time.Minute), WithRegistryClock(clock.Now))
	defer r.Close()
	ctx := context.Background()

	_, err := r.Store(ctx, "idle")
	require.NoError(t, err)
	watched, err := r.Store(ctx, "watched")
	require.NoError(t, err)
	unwatch := watched.Watch(func(Event) {})
	defer unwatch()

	clock.Advance(30 * time.Second)
	_, err = r.Store(ctx, "recent")
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, r.Prune())
	assert.Equal(t, 2, r.Len())

	again, err := r.Store(ctx, "watched")
	require.NoError(t, err)
	assert.Same(t, watched, again, "a watched store is never pruned")
}

func TestRegistry_PrunedSessionReloadsPersisted(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := newMemPersister()
	r := NewRegistry(p, nil, WithIdleTimeout(time.Minute), WithRegistryClock(clock.Now))
	defer r.Close()
	ctx := context.Background()

	s, err := r.Store(ctx, "x")
	require.NoError(t, err)
	s.ShakeDetection.Set(true)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, r.Prune(), "the persistence watch alone does not keep a store")

	reloaded, err := r.Store(ctx, "x")
	require.NoError(t, err)
	assert.NotSame(t, s, reloaded)
	assert.True(t, reloaded.ShakeDetection.Get())
}

func TestRegistry_CapBoundsStores(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRegistry(nil, nil, WithMaxStores(100), WithRegistryClock(clock.Now))
	defer r.Close()
	ctx := context.Background()

	first, err := r.Store(ctx, "first")
	require.NoError(t, err)
	unwatch := first.Watch(func(Event) {})
	defer unwatch()

	for i := range 5000 {
		clock.Advance(time.Millisecond)
		_, err := r.Store(ctx, fmt.Sprintf("anon-%d", i))
		require.NoError(t, err)
		require.LessOrEqual(t, r.Len(), 100)
	}

	again, err := r.Store(ctx, "first")
	require.NoError(t, err)
	assert.Same(t, first, again, "watched stores survive eviction")

	// the most recent sessions are the ones kept
	latest, err := r.Peek(ctx, "anon-4999")
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences(), latest)
	assert.Equal(t, 100, r.Len())
}

func TestRegistry_PeekDoesNotCreate(t *testing.T) {
	p := newMemPersister()
	p.data["known"] = Preferences{TextToSpeech: true}
	r := NewRegistry(p, nil)
	defer r.Close()
	ctx := context.Background()

	got, err := r.Peek(ctx, "known")
	require.NoError(t, err)
	assert.Equal(t, Preferences{TextToSpeech: true}, got)

	got, err = r.Peek(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences(), got)
	assert.Equal(t, 0, r.Len())

	s, err := r.Store(ctx, "known")
	require.NoError(t, err)
	s.SelectedVoice.Set("en-IE")
	got, err = r.Peek(ctx, "known")
	require.NoError(t, err)
	assert.Equal(t, "en-IE", got.SelectedVoice)
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	r := NewRegistry(nil, nil, WithIdleTimeout(0))
	defer r.Close()

	_, err := r.Store(context.Background(), "x")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx, time.Millisecond)
	}()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
