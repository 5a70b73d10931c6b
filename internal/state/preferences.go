package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/magic8ball/internal/settings"
)

// LoadPreferences returns the saved preferences for a session. The bool is
// false when the session has never been saved.
func (s *SQLiteStore) LoadPreferences(ctx context.Context, sessionID string) (settings.Preferences, bool, error) {
	if s.db == nil {
		return settings.Preferences{}, false, fmt.Errorf("database not opened")
	}

	var (
		p     settings.Preferences
		voice sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT shake_detection, text_to_speech, selected_voice
		FROM preferences WHERE session_id = ?`, sessionID,
	).Scan(&p.ShakeDetection, &p.TextToSpeech, &voice)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.DefaultPreferences(), false, nil
	}
	if err != nil {
		return settings.Preferences{}, false, fmt.Errorf("failed to load preferences: %w", err)
	}

	p.SelectedVoice = voice.String
	return p, true, nil
}

// SavePreferences upserts the preferences for a session.
func (s *SQLiteStore) SavePreferences(ctx context.Context, sessionID string, p settings.Preferences) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	voice := sql.NullString{String: p.SelectedVoice, Valid: p.SelectedVoice != ""}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (session_id, shake_detection, text_to_speech, selected_voice, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
			shake_detection = excluded.shake_detection,
			text_to_speech  = excluded.text_to_speech,
			selected_voice  = excluded.selected_voice,
			updated_at      = excluded.updated_at`,
		sessionID, p.ShakeDetection, p.TextToSpeech, voice,
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	s.logger.Debug("preferences saved", "session", sessionID)
	return nil
}

// DeletePreferences forgets a session.
func (s *SQLiteStore) DeletePreferences(ctx context.Context, sessionID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	return nil
}

// CountSessions returns the number of sessions with saved preferences.
func (s *SQLiteStore) CountSessions(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM preferences`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

var _ settings.Persister = (*SQLiteStore)(nil)
