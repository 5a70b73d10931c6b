// Package router sets up HTTP routes for the UI server.
package router

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/starfederation/datastar-go/datastar"

	eightballFeature "github.com/leapstack-labs/magic8ball/internal/ui/features/eightball"
	"github.com/leapstack-labs/magic8ball/internal/ui/notifier"
	"github.com/leapstack-labs/magic8ball/internal/ui/resources"
)

// Deps are the handlers and switches the routes are built from.
type Deps struct {
	Eightball *eightballFeature.Handlers
	Notifier  *notifier.Notifier

	// AssetsDir serves /static from a build output directory instead of
	// the bundled assets.
	AssetsDir  string
	ShakeLimit int
	IsDev      bool
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps) error {
	// Hot reload endpoint for dev mode
	if deps.IsDev {
		if deps.Notifier == nil {
			return fmt.Errorf("router: dev mode needs a notifier")
		}
		setupReload(router, deps.Notifier)
	}

	// Static assets
	if deps.AssetsDir != "" {
		router.Handle("/static/*", resources.DirHandler(deps.AssetsDir))
	} else {
		router.Handle("/static/*", resources.Handler())
	}

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	// Feature routes
	return eightballFeature.SetupRoutes(router, deps.Eightball, eightballFeature.Options{
		ShakeLimit: deps.ShakeLimit,
	})
}

// setupReload serves the dev reload stream. A page reloads once when it
// first connects after a server start, then again on every broadcast.
func setupReload(router chi.Router, notify *notifier.Notifier) {
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		ping, cancel := notify.Subscribe()
		defer cancel()

		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-ping:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		notify.Broadcast()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
