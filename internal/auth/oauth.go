package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/sakif/storefront/internal/apperror"
)

// DefaultGoogleUserInfoURL is Google's OpenID Connect userinfo endpoint.
const DefaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Profile is the identity the provider vouches for after a successful code
// exchange. Only the fields the storefront stores are decoded.
type Profile struct {
	Subject   string `json:"sub"` // stable per Google account; becomes model.User.ID
	Email     string `json:"email"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	Picture   string `json:"picture"`
}

// IdentityProvider is what the login handlers need from an OAuth provider.
type IdentityProvider interface {
	// AuthURL is where the browser is sent to log in.
	AuthURL(state string) string
	// Exchange trades an authorization code for the user's profile.
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// GoogleConfig holds the OAuth client registration.
//
// AuthURL, TokenURL and UserInfoURL default to Google's. Tests point them at
// an httptest server to run the full exchange without network access.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleProvider performs the Authorization Code flow against Google.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Redirect the user to the provider with our client ID, scopes and state.
//  2. The user approves; the provider redirects back with a short-lived code.
//  3. Exchange the code for an access token (server to server, with the secret).
//  4. Call the userinfo endpoint with the token.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

var _ IdentityProvider = (*GoogleProvider)(nil)

// NewGoogleProvider builds a provider requesting the openid, profile and
// email scopes.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := endpoints.Google
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = DefaultGoogleUserInfoURL
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// AuthURL returns the consent page URL. state is echoed back on the callback
// and compared with the state cookie to defeat login CSRF.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// signInFailed is the client-facing message for every provider failure.
const signInFailed = "Google sign-in failed"

// Exchange completes the flow and returns the user's profile. Every failure
// wraps apperror.ErrUpstream.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Upstream(signInFailed, fmt.Errorf("auth: exchanging OAuth code: %w", err))
	}

	// config.Client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperror.Upstream(signInFailed, fmt.Errorf("auth: calling userinfo endpoint: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Upstream(signInFailed, fmt.Errorf("auth: userinfo endpoint returned status %d", resp.StatusCode))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, apperror.Upstream(signInFailed, fmt.Errorf("auth: decoding userinfo response: %w", err))
	}
	if profile.Subject == "" {
		return nil, apperror.Upstream(signInFailed, errors.New("auth: provider returned a profile without a subject"))
	}
	return &profile, nil
}
