package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/session"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

type fakeUsers struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

type gateFixture struct {
	store   *session.MemoryStore
	manager *Manager
	users   *fakeUsers
	gate    *Gate
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	store := session.NewMemoryStore()
	manager := NewManager(store, newTestTokenService(t), CookieOptions{})
	users := &fakeUsers{users: map[string]*model.User{
		"admin-1":    {ID: "admin-1", IsAdmin: true},
		"customer-1": {ID: "customer-1"},
	}}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return &gateFixture{store: store, manager: manager, users: users, gate: NewGate(manager, users, logger)}
}

// login creates a session for userID and returns its cookie.
func (f *gateFixture) login(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	_, err := f.manager.Create(context.Background(), rec, userID)
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

// echoIdentity writes 200 and records the identity the handler saw.
func echoIdentity(seen *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =========================================================================
// IDENTITY TESTS
// =========================================================================

func TestIdentity_Owner(t *testing.T) {
	assert.Equal(t, model.UserOwner("u1"), Identity{SessionID: "s1", UserID: "u1"}.Owner())
	assert.Equal(t, model.SessionOwner("s1"), Identity{SessionID: "s1"}.Owner())
}

func TestIdentify_LoadsSession(t *testing.T) {
	f := newGateFixture(t)
	cookie := f.login(t, "customer-1")

	var seen Identity
	rec := serve(f.gate.Identify(echoIdentity(&seen)), cookie)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "customer-1", seen.UserID)
	assert.NotEmpty(t, seen.SessionID)
}

func TestIdentify_IgnoresBadCookies(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"forged", &http.Cookie{Name: DefaultCookieName, Value: "forged"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen Identity
			rec := serve(f.gate.Identify(echoIdentity(&seen)), tt.cookie)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, Identity{}, seen)
		})
	}
}

func TestIdentify_ForgottenSessionIsAnonymous(t *testing.T) {
	f := newGateFixture(t)
	cookie := f.login(t, "customer-1")

	// The token is still validly signed, but the server no longer has the session.
	n, err := f.store.DeleteExpired(context.Background(), time.Now().Add(365*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	var seen Identity
	serve(f.gate.Identify(echoIdentity(&seen)), cookie)
	assert.False(t, seen.Authenticated())
}

// =========================================================================
// REQUIRE* TESTS
// =========================================================================

func TestRequireSession_CreatesAnonymousSession(t *testing.T) {
	f := newGateFixture(t)

	var seen Identity
	h := f.gate.Identify(f.gate.RequireSession(echoIdentity(&seen)))
	rec := serve(h, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, seen.SessionID)
	assert.False(t, seen.Authenticated())
	assert.Equal(t, 1, f.store.Len())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	// The issued cookie identifies the same session on the next request.
	var again Identity
	serve(f.gate.Identify(f.gate.RequireSession(echoIdentity(&again))), cookies[0])
	assert.Equal(t, seen.SessionID, again.SessionID)
	assert.Equal(t, 1, f.store.Len())
}

func TestRequireAuth(t *testing.T) {
	f := newGateFixture(t)
	var seen Identity
	h := f.gate.Identify(f.gate.RequireAuth(echoIdentity(&seen)))

	rec := serve(h, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthenticated","message":"Unauthorized"}`, rec.Body.String())

	rec = serve(h, f.login(t, "customer-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	f := newGateFixture(t)
	var seen Identity
	h := f.gate.Identify(f.gate.RequireAdmin(echoIdentity(&seen)))

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantStatus int
		wantMsg    string
	}{
		{"anonymous", nil, http.StatusUnauthorized, "Unauthorized"},
		{"customer", f.login(t, "customer-1"), http.StatusForbidden, "Admin access required"},
		{"unknown user", f.login(t, "ghost"), http.StatusForbidden, "Admin access required"},
		{"admin", f.login(t, "admin-1"), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.cookie)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, rec.Body.String(), tt.wantMsg)
			}
		})
	}
}

func TestRequireAdmin_LookupFailure(t *testing.T) {
	f := newGateFixture(t)
	cookie := f.login(t, "admin-1")
	f.users.err = errors.New("database is locked")

	var seen Identity
	rec := serve(f.gate.Identify(f.gate.RequireAdmin(echoIdentity(&seen))), cookie)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error checking admin status")
}

// =========================================================================
// MANAGER TESTS
// =========================================================================

func TestManager_RotateReplacesSession(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	guest, err := f.manager.Create(ctx, rec, "")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	user, err := f.manager.Rotate(ctx, rec, guest, "customer-1")
	require.NoError(t, err)

	assert.NotEqual(t, guest.ID, user.ID)
	assert.Equal(t, "customer-1", user.UserID)

	_, err = f.store.Get(ctx, guest.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestManager_DestroyClearsCookie(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	s, _ := f.manager.Create(ctx, httptest.NewRecorder(), "customer-1")

	rec := httptest.NewRecorder()
	require.NoError(t, f.manager.Destroy(ctx, rec, s))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Equal(t, 0, f.store.Len())
}
