package eightball

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/magic8ball/internal/fortune"
	"github.com/leapstack-labs/magic8ball/internal/metrics"
	"github.com/leapstack-labs/magic8ball/internal/settings"
	"github.com/leapstack-labs/magic8ball/internal/ui/bootstrap"
	"github.com/leapstack-labs/magic8ball/internal/ui/features/common"
)

// Handlers provides HTTP handlers for the 8-ball feature.
type Handlers struct {
	app          *bootstrap.App
	registry     *settings.Registry
	teller       *fortune.Teller
	sessionStore sessions.Store
	validate     *validator.Validate
	logger       *slog.Logger
	thinking     time.Duration
}

// NewHandlers creates a new Handlers instance. thinking is how long the ball
// "thinks" before an answer appears.
func NewHandlers(
	app *bootstrap.App,
	registry *settings.Registry,
	teller *fortune.Teller,
	sessionStore sessions.Store,
	logger *slog.Logger,
	thinking time.Duration,
) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		app:          app,
		registry:     registry,
		teller:       teller,
		sessionStore: sessionStore,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger,
		thinking:     thinking,
	}
}

// Page serves the mounted application shell. It also starts the browser
// session so the update stream and the settings endpoint share it.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	if _, err := common.SessionID(h.sessionStore, w, r); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(h.app.HTML())
}

// Updates is the long-lived SSE endpoint. It subscribes to the session's
// settings store and patches the page signals on every change, starting
// with the current values.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionSettings(w, r)
	if !ok {
		return
	}

	sse := datastar.NewSSE(w, r)
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	var (
		mu      sync.Mutex
		pending = make(map[string]any)
		ping    = make(chan struct{}, 1)
	)
	// Called from whichever goroutine sets a value; only record it and wake
	// the stream loop.
	unsubscribe := store.Watch(func(ev settings.Event) {
		mu.Lock()
		pending[SignalName(ev.Field)] = ev.Value
		mu.Unlock()
		select {
		case ping <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping:
			mu.Lock()
			patch := pending
			pending = make(map[string]any)
			mu.Unlock()

			if err := sse.MarshalAndPatchSignals(patch); err != nil {
				h.logger.Debug("update stream closed", "error", err)
				return
			}
		}
	}
}

// Shake picks an answer and patches it into the page.
func (h *Handlers) Shake(w http.ResponseWriter, r *http.Request) {
	trigger := r.URL.Query().Get("trigger")
	if !slices.Contains(ShakeTriggers, trigger) {
		trigger = "click"
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.MarshalAndPatchSignals(map[string]any{"shaking": true}); err != nil {
		return
	}

	if !h.think(r.Context()) {
		return
	}

	answer := h.teller.Shake()
	metrics.IncAnswer(trigger)
	h.logger.Debug("ball shaken", "trigger", trigger, "answer", answer.Text)

	_ = sse.MarshalAndPatchSignals(map[string]any{
		"shaking": false,
		"answer":  answer.Text,
	})
}

// UpdateSettings applies the posted signals to the session's settings store.
// Subscribers, including every open update stream of the session, see the
// change through the store.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals SettingsSignals
	readErr := datastar.ReadSignals(r, &signals)

	store, ok := h.sessionSettings(w, r)
	if !ok {
		return
	}

	sse := datastar.NewSSE(w, r)

	if readErr == nil {
		readErr = h.validate.Struct(signals)
	}
	if readErr != nil {
		_ = sse.ConsoleError(readErr)
		// put the controls back to what the store holds
		_ = sse.MarshalAndPatchSignals(store.Snapshot())
		return
	}

	for _, change := range signals.changes(store.Snapshot()) {
		if err := store.Set(change.Field, change.Value); err != nil {
			_ = sse.ConsoleError(err)
			continue
		}
		metrics.IncSettingsChange(string(change.Field))
		h.logger.Debug("setting changed", "field", change.Field, "value", change.Value)
	}
}

// sessionSettings resolves the caller's settings store, writing an error
// response when it cannot.
func (h *Handlers) sessionSettings(w http.ResponseWriter, r *http.Request) (*settings.Store, bool) {
	sid, err := common.SessionID(h.sessionStore, w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	store, err := h.registry.Store(r.Context(), sid)
	if err != nil {
		h.logger.Error("failed to open settings", "session", sid, "error", err)
		http.Error(w, "settings unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return store, true
}

func (h *Handlers) think(ctx context.Context) bool {
	if h.thinking <= 0 {
		return true
	}
	t := time.NewTimer(h.thinking)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
