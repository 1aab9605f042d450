package provision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loamlabs/ssobridge/pkg/observability"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore reads and expires sessions outside the provisioning path.
type SessionStore struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewSessionStore creates a session store.
func NewSessionStore(db *sql.DB, logger *observability.Logger) *SessionStore {
	return &SessionStore{db: db, logger: logger}
}

// Get returns a live session; expired sessions are indistinguishable from
// missing ones.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	session := &Session{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider_id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()
	`, id).Scan(&session.ID, &session.UserID, &session.ProviderID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpired removes expired sessions and returns how many were deleted.
// It is scheduled periodically from the server process.
func (s *SessionStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("removed expired sessions")
	}
	return deleted, nil
}
