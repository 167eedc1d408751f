package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/session"
)

// contextKey is unexported so no other package can read or overwrite the
// values this package stores in a request context.
type contextKey string

const (
	identityKey contextKey = "identity"
	sessionKey  contextKey = "session"
)

// Identity is who is making the request, resolved once per request by the
// Gate and read by handlers from the context.
type Identity struct {
	SessionID string
	UserID    string // empty for anonymous shoppers
}

// Authenticated reports whether a user is logged in.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Owner is the cart/order owner for this identity: the user when logged in,
// otherwise the anonymous session.
func (i Identity) Owner() model.Owner {
	if i.UserID != "" {
		return model.UserOwner(i.UserID)
	}
	return model.SessionOwner(i.SessionID)
}

// IdentityFromContext returns the identity stored by the Gate.
// ok is false when the request carries no session.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// SessionFromContext returns the loaded session, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// WithSession stores s and its Identity in ctx.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey, s)
	return context.WithValue(ctx, identityKey, Identity{SessionID: s.ID, UserID: s.UserID})
}

// UserLookup is the one repository method the admin check needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Gate is the set of middlewares that resolve and enforce identity.
//
// MIDDLEWARE ORDER:
// Identify runs on every route. The Require* middlewares are mounted on the
// route groups that need them and assume Identify already ran.
type Gate struct {
	sessions *Manager
	users    UserLookup
	logger   *slog.Logger
}

func NewGate(sessions *Manager, users UserLookup, logger *slog.Logger) *Gate {
	return &Gate{sessions: sessions, users: users, logger: logger}
}

// Identify loads the request's session, if any, into the context. It never
// blocks a request: a missing or invalid cookie just means anonymous.
func (g *Gate) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := g.sessions.Load(r)
		switch {
		case err == nil:
			r = r.WithContext(WithSession(r.Context(), s))
		case !errors.Is(err, session.ErrNotFound):
			g.logger.Error("loading session", slog.String("error", err.Error()))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession guarantees an Identity, creating an anonymous session when
// the browser has none. Guests get a cart without logging in.
func (g *Gate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			s, err := g.sessions.Create(r.Context(), w, "")
			if err != nil {
				g.logger.Error("creating anonymous session", slog.String("error", err.Error()))
				writeGateError(w, &apperror.AppError{Message: "Error creating session"})
				return
			}
			r = r.WithContext(WithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless a user is logged in.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); !ok || !id.Authenticated() {
			writeGateError(w, apperror.Unauthenticated("Unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 when anonymous, 500 when the user cannot be read
// and 403 when the user is not an admin. The flag is read from the database
// on every request, so revoking admin takes effect immediately.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return g.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())

		user, err := g.users.GetUserByID(r.Context(), id.UserID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			g.logger.Error("checking admin status",
				slog.String("userID", id.UserID),
				slog.String("error", err.Error()),
			)
			writeGateError(w, &apperror.AppError{Message: "Error checking admin status"})
			return
		}
		if user == nil || !user.IsAdmin {
			writeGateError(w, apperror.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// writeGateError writes the same {"error","message"} body the handlers use.
// An AppError without a sentinel is a 500.
func writeGateError(w http.ResponseWriter, err *apperror.AppError) {
	status, kind := apperror.HTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": err.Message})
}
