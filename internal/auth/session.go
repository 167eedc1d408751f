package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/storefront/internal/session"
)

// CookieOptions controls the session cookie's attributes.
//
// In production the storefront is served over HTTPS, so the cookie is Secure.
// SameSite=None is only valid together with Secure.
type CookieOptions struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieName is used when CookieOptions.Name is empty.
const DefaultCookieName = "sid"

// Manager creates, loads and destroys sessions and keeps the cookie in sync
// with the store.
type Manager struct {
	store  session.Store
	tokens *TokenService
	cookie CookieOptions
	now    func() time.Time
}

// NewManager wires a session store to the token service. Sessions live as
// long as the tokens do.
func NewManager(store session.Store, tokens *TokenService, cookie CookieOptions) *Manager {
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	if cookie.SameSite == 0 {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return &Manager{store: store, tokens: tokens, cookie: cookie, now: time.Now}
}

// CookieName is the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookie.Name
}

// Load returns the session referenced by the request's cookie.
// session.ErrNotFound means "no usable session": the cookie is absent, its
// signature is bad, or the store has no live entry for it.
func (m *Manager) Load(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(m.cookie.Name)
	if err != nil || c.Value == "" {
		return nil, session.ErrNotFound
	}

	id, err := m.tokens.Validate(c.Value)
	if err != nil {
		return nil, session.ErrNotFound
	}

	s, err := m.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("auth: loading session: %w", err)
	}
	return s, nil
}

// Create starts a new session, anonymous when userID is empty, and sets the
// cookie on w.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, userID string) (*session.Session, error) {
	now := m.now()
	s := &session.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.tokens.TTL()),
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("auth: saving session: %w", err)
	}

	token, err := m.tokens.Generate(s.ID)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: m.cookie.SameSite,
	})
	return s, nil
}

// Rotate replaces old (which may be nil) with a fresh session bound to
// userID. Issuing a new ID at login means a session ID planted in the
// browser before login is worthless afterwards.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, old *session.Session, userID string) (*session.Session, error) {
	if old != nil {
		if err := m.store.Delete(ctx, old.ID); err != nil {
			return nil, fmt.Errorf("auth: deleting old session: %w", err)
		}
	}
	return m.Create(ctx, w, userID)
}

// Destroy deletes s (if any) and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *session.Session) error {
	m.clearCookie(w)
	if s == nil {
		return nil
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("auth: deleting session: %w", err)
	}
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: m.cookie.SameSite,
	})
}
