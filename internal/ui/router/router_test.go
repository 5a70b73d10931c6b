package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/magic8ball/internal/ui/features"
	eightballFeature "github.com/leapstack-labs/magic8ball/internal/ui/features/eightball"
)

func setupRouter(t *testing.T, deps Deps) (*chi.Mux, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	deps.Eightball = eightballFeature.NewHandlers(
		fixture.App, fixture.Registry, fixture.Teller, fixture.SessionStore, fixture.Logger, 0,
	)
	if deps.Notifier == nil {
		deps.Notifier = fixture.Notifier
	}

	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, deps))
	return r, fixture
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSetupRoutes(t *testing.T) {
	r, _ := setupRouter(t, Deps{})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "page", target: "/", wantStatus: http.StatusOK, wantBody: `id="eightball"`},
		{name: "health", target: "/healthz", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "metrics", target: "/metrics", wantStatus: http.StatusOK, wantBody: "go_goroutines"},
		{name: "bundled script", target: "/static/app.js", wantStatus: http.StatusOK, wantBody: "eightball"},
		{name: "bundled styles", target: "/static/app.css", wantStatus: http.StatusOK},
		{name: "settings api", target: "/api/settings", wantStatus: http.StatusOK, wantBody: "shakeDetection"},
		{name: "no reload outside dev", target: "/hotreload", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, r, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestSetupRoutes_AssetsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("built"), 0o600))

	r, _ := setupRouter(t, Deps{AssetsDir: dir})

	rec := get(t, r, "/static/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "built", rec.Body.String())
}

func TestSetupRoutes_ShakeLimit(t *testing.T) {
	r, _ := setupRouter(t, Deps{ShakeLimit: 1})

	shake := func() int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/shake", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, shake())
	assert.Equal(t, http.StatusTooManyRequests, shake())
}

func TestReload(t *testing.T) {
	r, fixture := setupRouter(t, Deps{IsDev: true})

	// The first connection after start reloads straight away.
	firstReq, cancelFirst := features.RequestWithTimeout(httptest.NewRequest(http.MethodGet, "/reload", nil), 50*time.Millisecond)
	defer cancelFirst()
	first := httptest.NewRecorder()
	r.ServeHTTP(first, firstReq)
	assert.Contains(t, first.Body.String(), "window.location.reload()")

	req, cancel := features.RequestWithTimeout(httptest.NewRequest(http.MethodGet, "/reload", nil), time.Second)
	defer cancel()
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return fixture.Notifier.Listeners() == 1
	}, time.Second, 5*time.Millisecond)

	hot := get(t, r, "/hotreload")
	assert.Equal(t, http.StatusOK, hot.Code)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload stream did not end after broadcast")
	}
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "window.location.reload()"))
	assert.Equal(t, 0, fixture.Notifier.Listeners())
}
