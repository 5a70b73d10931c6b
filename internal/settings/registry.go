package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// saveTimeout bounds a single persist call made from a change notification.
const saveTimeout = 5 * time.Second

// Registry limits used by NewRegistry.
const (
	DefaultMaxStores   = 10000
	DefaultIdleTimeout = 30 * time.Minute
)

// Persister loads and saves preferences for a session.
type Persister interface {
	LoadPreferences(ctx context.Context, sessionID string) (Preferences, bool, error)
	SavePreferences(ctx context.Context, sessionID string, p Preferences) error
}

type entry struct {
	store    *Store
	unwatch  Unsubscribe
	lastUsed time.Time
}

// baseline is the number of subscriptions the registry itself holds on the
// store.
func (e *entry) baseline() int {
	if e.unwatch != nil {
		return len(Fields)
	}
	return 0
}

// idle reports whether nothing outside the registry watches the store.
func (e *entry) idle() bool {
	return e.store.Subscribers() <= e.baseline()
}

// Registry hands out one Store per browser session. Stores nobody watches
// are dropped once they sit unused for the idle timeout, or earlier when
// the registry grows past its cap. A dropped session starts again from its
// persisted preferences, or from defaults without a persister.
type Registry struct {
	mu          sync.Mutex
	entries     map[string]*entry
	persister   Persister
	logger      *slog.Logger
	maxStores   int
	idleTimeout time.Duration
	now         func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxStores caps how many sessions are held at once. Zero or less
// disables the cap.
func WithMaxStores(n int) RegistryOption {
	return func(r *Registry) { r.maxStores = n }
}

// WithIdleTimeout sets how long an unwatched store is kept after its last use.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithRegistryClock replaces time.Now.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry. persister may be nil, in which case
// preferences live only as long as the session's store.
func NewRegistry(persister Persister, logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{
		entries:     make(map[string]*entry),
		persister:   persister,
		logger:      logger,
		maxStores:   DefaultMaxStores,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store for sessionID, creating it on first use.
func (r *Registry) Store(ctx context.Context, sessionID string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.entries[sessionID]; ok {
		e.lastUsed = now
		return e.store, nil
	}

	prefs, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e := &entry{store: NewStoreWith(prefs), lastUsed: now}
	if r.persister != nil {
		e.unwatch = r.persistOnChange(sessionID, e.store)
	}
	r.entries[sessionID] = e
	r.enforceCap(sessionID)

	r.logger.Debug("settings store created", "session", sessionID)
	return e.store, nil
}

// Peek returns the preferences of sessionID without creating a store for it.
func (r *Registry) Peek(ctx context.Context, sessionID string) (Preferences, error) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if ok {
		e.lastUsed = r.now()
	}
	r.mu.Unlock()

	if ok {
		return e.store.Snapshot(), nil
	}
	return r.load(ctx, sessionID)
}

// Len reports how many sessions have a store.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Prune drops every unwatched store that has not been used within the idle
// timeout and reports how many were dropped.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTimeout)
	n := 0
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) && e.idle() {
			r.drop(id)
			n++
		}
	}
	if n > 0 {
		r.logger.Debug("idle settings stores pruned", "count", n, "remaining", len(r.entries))
	}
	return n
}

// Run prunes idle stores every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Prune()
		}
	}
}

// Close drops every store and its persistence subscription.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.unwatch != nil {
			e.unwatch()
		}
		delete(r.entries, id)
	}
}

func (r *Registry) load(ctx context.Context, sessionID string) (Preferences, error) {
	prefs := DefaultPreferences()
	if r.persister == nil {
		return prefs, nil
	}
	loaded, ok, err := r.persister.LoadPreferences(ctx, sessionID)
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences for %s: %w", sessionID, err)
	}
	if ok {
		prefs = loaded
	}
	return prefs, nil
}

// enforceCap evicts the least recently used unwatched stores until the
// registry is back under its cap. keep is never evicted. Called with r.mu held.
func (r *Registry) enforceCap(keep string) {
	if r.maxStores <= 0 {
		return
	}
	for len(r.entries) > r.maxStores {
		var (
			oldestID string
			oldest   time.Time
		)
		for id, e := range r.entries {
			if id == keep || !e.idle() {
				continue
			}
			if oldestID == "" || e.lastUsed.Before(oldest) {
				oldestID, oldest = id, e.lastUsed
			}
		}
		if oldestID == "" {
			// every other store is watched
			return
		}
		r.drop(oldestID)
		r.logger.Debug("settings store evicted", "session", oldestID)
	}
}

// drop forgets a session. The persistence watch stays attached so a caller
// still holding the store keeps saving. Called with r.mu held.
func (r *Registry) drop(id string) {
	delete(r.entries, id)
}

func (r *Registry) persistOnChange(sessionID string, s *Store) Unsubscribe {
	// Watch replays the current value of every field on registration; those
	// are already persisted (or defaults), so skip them.
	var primed atomic.Bool
	unsub := s.Watch(func(ev Event) {
		if !primed.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := r.persister.SavePreferences(ctx, sessionID, s.Snapshot()); err != nil {
			r.logger.Error("failed to persist preferences", "session", sessionID, "field", ev.Field, "error", err)
		}
	})
	primed.Store(true)
	return unsub
}
