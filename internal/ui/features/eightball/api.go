package eightball

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/magic8ball/internal/fortune"
	"github.com/leapstack-labs/magic8ball/internal/metrics"
	"github.com/leapstack-labs/magic8ball/internal/settings"
	"github.com/leapstack-labs/magic8ball/internal/ui/features/common"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 10

type errorResponse struct {
	Error string `json:"error"`
}

// GetSettings returns the session's preferences as JSON. A caller without
// a session gets the defaults and no session is started.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	prefs, ok := h.peekSettings(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// GetSetting returns one preference as JSON.
func (h *Handlers) GetSetting(w http.ResponseWriter, r *http.Request) {
	prefs, ok := h.peekSettings(w, r)
	if !ok {
		return
	}
	value, err := prefs.Get(settings.Field(chi.URLParam(r, "field")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *Handlers) peekSettings(w http.ResponseWriter, r *http.Request) (settings.Preferences, bool) {
	sid, ok := common.PeekSessionID(h.sessionStore, r)
	if !ok {
		return settings.DefaultPreferences(), true
	}
	prefs, err := h.registry.Peek(r.Context(), sid)
	if err != nil {
		h.logger.Error("failed to read settings", "session", sid, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "settings unavailable"})
		return settings.Preferences{}, false
	}
	return prefs, true
}

// PutSetting replaces one preference. The body is the JSON value; null
// clears the voice.
func (h *Handlers) PutSetting(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionSettings(w, r)
	if !ok {
		return
	}

	field, err := settings.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, err)
		return
	}

	var value any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&value); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if voice, ok := value.(string); ok {
		if err := h.validate.Var(voice, "max=256"); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	if err := store.Set(field, value); err != nil {
		writeError(w, err)
		return
	}
	metrics.IncSettingsChange(string(field))

	current, _ := store.Get(field)
	writeJSON(w, http.StatusOK, current)
}

// Ask answers the question in the q parameter as JSON.
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	answer, err := h.teller.Ask(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.IncAnswer("ask")
	writeJSON(w, http.StatusOK, answer)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, settings.ErrUnknownField):
		status = http.StatusNotFound
	case errors.Is(err, settings.ErrInvalidValue), errors.Is(err, fortune.ErrEmptyQuestion):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
