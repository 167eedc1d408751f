package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/storefront/internal/session"
)

// SessionStore keeps sessions in the main database, so a single-binary
// deployment gets durable sessions without running a second server.
type SessionStore struct {
	db *DB
}

var _ session.Store = (*SessionStore)(nil)

// Sessions returns a session.Store backed by the sessions table.
func (db *DB) Sessions() *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	var (
		sess    = session.Session{ID: id}
		userID  sql.NullString
		expires int64
	)
	err := s.db.q.QueryRowContext(ctx,
		`SELECT user_id, created_at, expires_at FROM sessions WHERE sid = ? AND expires_at > ?`,
		id, time.Now().UnixNano(),
	).Scan(&userID, &sess.CreatedAt, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}

	sess.UserID = userID.String
	sess.ExpiresAt = time.Unix(0, expires).UTC()
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	_, err := s.db.q.ExecContext(ctx,
		`INSERT INTO sessions (sid, user_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (sid) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at`,
		sess.ID, nullString(sess.UserID), sess.CreatedAt.UTC(), sess.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.q.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: pruning sessions: %w", err)
	}
	return res.RowsAffected()
}
