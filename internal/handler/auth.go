package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/service"
)

const stateCookieName = "oauth_state"

// AuthRedirects are where the browser lands after the OAuth callback.
type AuthRedirects struct {
	PostLogin string // e.g. "/"
	Failure   string // e.g. "/login"; "?error=<reason>" is appended
}

// AuthHandler manages the Google login flow and the session lifecycle.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin    → redirect the browser to Google's consent page
//   - HandleCallback → verify state, exchange the code, upsert the user,
//     rotate the session
//   - HandleLogout   → delete the session and clear the cookie
//   - HandleUser     → return the logged-in user's profile
type AuthHandler struct {
	provider  auth.IdentityProvider
	sessions  *auth.Manager
	users     *service.AuthService
	redirects AuthRedirects
	secure    bool // mirrors the session cookie's Secure attribute
	logger    *slog.Logger
}

func NewAuthHandler(
	provider auth.IdentityProvider,
	sessions *auth.Manager,
	users *service.AuthService,
	redirects AuthRedirects,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	if redirects.PostLogin == "" {
		redirects.PostLogin = "/"
	}
	if redirects.Failure == "" {
		redirects.Failure = "/login"
	}
	return &AuthHandler{
		provider:  provider,
		sessions:  sessions,
		users:     users,
		redirects: redirects,
		secure:    secureCookies,
		logger:    logger,
	}
}

// HandleLogin redirects the user to Google.
//
// HTTP: GET /api/auth/google
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived cookie and sent to Google, which
// echoes it back on the callback. A callback whose state does not match the
// cookie was not started by this browser.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes to approve
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter
//  2. Exchange the code for a Google profile
//  3. Upsert the user
//  4. Rotate the session: the pre-login session is deleted and a new one
//     bound to the user is issued
//  5. Redirect to the app
//
// Every failure redirects to the failure URL and leaves the browser with
// whatever session it had before.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		h.fail(w, r, "invalid_state")
		return
	}

	// The state is single use.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	// Google sends ?error=access_denied when the user declines.
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: provider returned an error", slog.String("error", errParam))
		h.fail(w, r, errParam)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, "missing_code")
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: code exchange failed", slog.String("error", err.Error()))
		if errors.Is(err, apperror.ErrUpstream) {
			h.users.LoginFailed("upstream_error")
		} else {
			h.users.LoginFailed("exchange_error")
		}
		h.fail(w, r, "exchange_failed")
		return
	}

	user, err := h.users.LoginWithProfile(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.String("subject", profile.Subject),
			slog.String("error", err.Error()),
		)
		h.fail(w, r, "login_failed")
		return
	}

	if _, err := h.sessions.Rotate(r.Context(), w, auth.SessionFromContext(r.Context()), user.ID); err != nil {
		h.logger.Error("auth callback: session rotation failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		h.fail(w, r, "session_failed")
		return
	}

	http.Redirect(w, r, h.redirects.PostLogin, http.StatusSeeOther)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.redirects.Failure+"?error="+url.QueryEscape(reason), http.StatusSeeOther)
}

// HandleLogout ends the session.
//
// HTTP: GET or POST /api/auth/logout
//
// The session row is deleted, so the cookie is worthless even if the browser
// keeps it. Logging out without a session still succeeds.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, auth.SessionFromContext(r.Context())); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// HandleUser returns the logged-in user's profile, or 401.
//
// HTTP: GET /api/auth/user
func (h *AuthHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	user, err := h.users.GetUser(r.Context(), id.UserID)
	if err != nil {
		// A session pointing at a user that no longer exists is just logged out.
		if errors.Is(err, apperror.ErrNotFound) {
			err = apperror.Unauthenticated("Not authenticated")
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleListUsers returns all accounts.
//
// HTTP: GET /api/admin/users (admin)
func (h *AuthHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
