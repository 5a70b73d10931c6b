// Package common provides shared helpers for UI features.
package common

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie that identifies a browser session.
const SessionName = "magic8ball"

const sessionIDKey = "sid"

// SessionID returns the id of the caller's browser session, starting a new
// session (and setting its cookie) when there is none. It must run before
// anything is written to w.
func SessionID(store sessions.Store, w http.ResponseWriter, r *http.Request) (string, error) {
	// A tampered or stale cookie yields a fresh session alongside the error.
	sess, _ := store.Get(r, SessionName)
	if sess == nil {
		return "", fmt.Errorf("failed to open session")
	}

	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// PeekSessionID returns the id of the caller's browser session without
// starting one.
func PeekSessionID(store sessions.Store, r *http.Request) (string, bool) {
	sess, err := store.Get(r, SessionName)
	if err != nil || sess == nil {
		return "", false
	}
	id, ok := sess.Values[sessionIDKey].(string)
	return id, ok && id != ""
}

// NewCookieStore returns the cookie store used for browser sessions.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(86400 * 30) // 30 days
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}
