package eightball

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Options tunes the feature's routes.
type Options struct {
	// ShakeLimit is the number of shakes allowed per client IP each minute.
	// Zero disables the limit.
	ShakeLimit int
}

// SetupRoutes configures routes for the 8-ball feature.
func SetupRoutes(router chi.Router, handlers *Handlers, opts Options) error {
	if handlers == nil {
		return fmt.Errorf("eightball: nil handlers")
	}

	router.Get("/", handlers.Page)
	router.Get("/updates", handlers.Updates)
	router.Post("/settings", handlers.UpdateSettings)

	router.Group(func(r chi.Router) {
		if opts.ShakeLimit > 0 {
			r.Use(shakeLimiter(opts.ShakeLimit, time.Minute))
		}
		r.Post("/shake", handlers.Shake)
	})

	router.Route("/api", func(r chi.Router) {
		r.Get("/settings", handlers.GetSettings)
		r.Get("/settings/{field}", handlers.GetSetting)
		r.Put("/settings/{field}", handlers.PutSetting)
		r.Get("/answer", handlers.Ask)
	})

	return nil
}

func shakeLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "the ball needs a rest, try again shortly"})
		}),
	)
}
