// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/magic8ball/internal/fortune"
	"github.com/leapstack-labs/magic8ball/internal/settings"
	"github.com/leapstack-labs/magic8ball/internal/state"
	"github.com/leapstack-labs/magic8ball/internal/testutil"
	"github.com/leapstack-labs/magic8ball/internal/ui/bootstrap"
	"github.com/leapstack-labs/magic8ball/internal/ui/components"
	"github.com/leapstack-labs/magic8ball/internal/ui/features/common"
	"github.com/leapstack-labs/magic8ball/internal/ui/notifier"
	"github.com/leapstack-labs/magic8ball/internal/ui/resources"
)

// TestSecret signs cookies in tests.
const TestSecret = "test-secret-key-32-bytes-long!!"

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	App          *bootstrap.App
	Registry     *settings.Registry
	Teller       *fortune.Teller
	State        *state.SQLiteStore
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
	Logger       *slog.Logger
	Logs         *testutil.LogRecorder
}

// FixtureOption adjusts a fixture before it is built.
type FixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	base    string
	answers []string
	persist   bool
	isDev     bool
	maxStores int
}

// WithBase mounts the app under base.
func WithBase(base string) FixtureOption {
	return func(c *fixtureConfig) { c.base = base }
}

// WithAnswers replaces the answer set.
func WithAnswers(answers ...string) FixtureOption {
	return func(c *fixtureConfig) { c.answers = answers }
}

// WithPersistence backs the registry with an in-memory SQLite store.
func WithPersistence() FixtureOption {
	return func(c *fixtureConfig) { c.persist = true }
}

// WithMaxStores caps the registry's session stores.
func WithMaxStores(n int) FixtureOption {
	return func(c *fixtureConfig) { c.maxStores = n }
}

// WithDev renders the dev reload hook.
func WithDev() FixtureOption {
	return func(c *fixtureConfig) { c.isDev = true }
}

// SetupTestFixture mounts the real page shell and wires a registry, a
// deterministic teller and a cookie store.
func SetupTestFixture(t *testing.T, opts ...FixtureOption) *TestFixture {
	t.Helper()

	cfg := fixtureConfig{base: "/", answers: fortune.DefaultAnswers, maxStores: settings.DefaultMaxStores}
	for _, opt := range opts {
		opt(&cfg)
	}

	logs, logger := testutil.NewLogRecorder(t)

	var (
		persister settings.Persister
		store     *state.SQLiteStore
	)
	if cfg.persist {
		store = state.NewSQLiteStore(logger)
		require.NoError(t, store.Open(state.MemoryPath))
		require.NoError(t, store.Migrate())
		t.Cleanup(func() { _ = store.Close() })
		persister = store
	}

	registry := settings.NewRegistry(persister, logger, settings.WithMaxStores(cfg.maxStores))
	t.Cleanup(registry.Close)

	teller, err := fortune.New(cfg.answers, fortune.WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)

	doc, err := bootstrap.LoadShell(resources.FS(), resources.ShellFile)
	require.NoError(t, err)

	app, err := bootstrap.Mount(context.Background(), doc, bootstrap.MountPointID, components.App(components.Props{
		Base:    cfg.base,
		Initial: settings.DefaultPreferences(),
		IsDev:   cfg.isDev,
	}))
	require.NoError(t, err)

	return &TestFixture{
		App:          app,
		Registry:     registry,
		Teller:       teller,
		State:        store,
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		Logger:       logger,
		Logs:         logs,
	}
}

// SessionCookie starts a browser session and returns its cookie, for
// requests that should share one.
func (f *TestFixture) SessionCookie(t *testing.T) (*http.Cookie, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sid, err := common.SessionID(f.SessionStore, rec, req)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "session cookie should be set")
	return cookies[0], sid
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithTimeout wraps a request with a context timeout. The returned
// cancel must be called.
func RequestWithTimeout(r *http.Request, timeout time.Duration) (*http.Request, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	return r.WithContext(ctx), cancel
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return common.NewCookieStore(TestSecret, false)
}
