package provision

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamlabs/ssobridge/pkg/observability"
)

func newTestSessionStore(t *testing.T) (*SessionStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, nil)
	return NewSessionStore(db, logger), mock
}

func TestSessionStore_Get(t *testing.T) {
	store, mock := newTestSessionStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT id, user_id, provider_id, created_at, expires_at").
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "provider_id", "created_at", "expires_at"}).
			AddRow("session-1", "user-1", "acme", now, now.Add(time.Hour)))

	session, err := store.Get(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "acme", session.ProviderID)
}

func TestSessionStore_Get_NotFound(t *testing.T) {
	store, mock := newTestSessionStore(t)

	mock.ExpectQuery("SELECT id, user_id, provider_id, created_at, expires_at").
		WithArgs("expired-or-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "provider_id", "created_at", "expires_at"}))

	_, err := store.Get(context.Background(), "expired-or-missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	store, mock := newTestSessionStore(t)

	mock.ExpectExec("DELETE FROM sessions WHERE id").
		WithArgs("session-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Delete(context.Background(), "session-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_CleanupExpired(t *testing.T) {
	store, mock := newTestSessionStore(t)

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := store.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestSessionStore_CleanupExpired_Nothing(t *testing.T) {
	store, mock := newTestSessionStore(t)

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := store.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
