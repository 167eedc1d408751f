// Package session defines server-side session storage.
//
// A session is the server's memory of one browser: its random ID travels in
// a signed cookie (see package auth), and everything else lives here. The
// application only talks to the Store interface, so switching between the
// in-memory store (development) and a durable store (production) is a
// configuration choice, not a code path.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the session does not exist or has
// expired. Callers treat both the same way: the browser is anonymous.
var ErrNotFound = errors.New("session: not found")

// Session is one browser's server-side state.
//
// UserID is empty for anonymous shoppers. Sessions are immutable once saved:
// logging in creates a new session rather than mutating the old one.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Authenticated reports whether the session belongs to a logged-in user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// Expired reports whether the session is past its expiry at time now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions.
type Store interface {
	// Get returns ErrNotFound for missing or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions that expired before now and reports
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
