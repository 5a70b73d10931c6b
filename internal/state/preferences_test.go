package state

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/magic8ball/internal/settings"
)

var errDriver = errors.New("disk I/O error")

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	store := NewSQLiteStore(nil)
	store.db = db
	return store, mock
}

func TestPreferences_DatabaseErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(s *SQLiteStore) error
		wantErr   string
	}{
		{
			name: "load query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT shake_detection").WithArgs("s").WillReturnError(errDriver)
			},
			call: func(s *SQLiteStore) error {
				_, _, err := s.LoadPreferences(ctx, "s")
				return err
			},
			wantErr: "failed to load preferences",
		},
		{
			name: "save exec fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO preferences").
					WithArgs("s", true, false, sql.NullString{String: "en-US-1", Valid: true}).
					WillReturnError(errDriver)
			},
			call: func(s *SQLiteStore) error {
				return s.SavePreferences(ctx, "s", settings.Preferences{ShakeDetection: true, SelectedVoice: "en-US-1"})
			},
			wantErr: "failed to save preferences",
		},
		{
			name: "delete exec fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM preferences").WithArgs("s").WillReturnError(errDriver)
			},
			call: func(s *SQLiteStore) error {
				return s.DeletePreferences(ctx, "s")
			},
			wantErr: "failed to delete preferences",
		},
		{
			name: "count query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT COUNT").WillReturnError(errDriver)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.CountSessions(ctx)
				return err
			},
			wantErr: "failed to count sessions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			err := tt.call(store)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, errDriver)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPreferences_EmptyVoiceStoredAsNull(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO preferences").
		WithArgs("s", false, true, sql.NullString{}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SavePreferences(context.Background(), "s", settings.Preferences{TextToSpeech: true}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferences_LoadNullVoice(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"shake_detection", "text_to_speech", "selected_voice"}).
		AddRow(true, false, nil)
	mock.ExpectQuery("SELECT shake_detection").WithArgs("s").WillReturnRows(rows)

	got, ok, err := store.LoadPreferences(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, settings.Preferences{ShakeDetection: true}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
