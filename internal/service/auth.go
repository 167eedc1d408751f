package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/metrics"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// AuthService owns the user side of login: turning a provider profile into
// a stored user.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	            ↘ auth.Manager (session cookie)
//
// It does not touch cookies or sessions; that is the handler's job.
type AuthService struct {
	users       repository.UserRepository
	adminEmails map[string]bool
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewAuthService creates an AuthService. Users whose email appears in
// adminEmails (case-insensitive) are made admins when they log in.
func NewAuthService(users repository.UserRepository, adminEmails []string, m *metrics.Metrics, logger *slog.Logger) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = true
		}
	}
	return &AuthService{users: users, adminEmails: admins, metrics: m, logger: logger}
}

// LoginWithProfile upserts the user described by the provider profile.
//
// The provider's subject is the primary key, so repeated logins update the
// same row. The admin flag is only ever raised here, never cleared.
func (s *AuthService) LoginWithProfile(ctx context.Context, p *auth.Profile) (*model.User, error) {
	if p == nil || p.Subject == "" {
		return nil, errors.New("service/auth: profile must have a subject")
	}

	user := &model.User{
		ID:              p.Subject,
		Email:           p.Email,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		ProfileImageURL: p.Picture,
		IsAdmin:         s.adminEmails[strings.ToLower(p.Email)],
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		s.metrics.Login("store_error")
		return nil, fmt.Errorf("service/auth: upserting user %s: %w", p.Subject, err)
	}

	s.metrics.Login("success")
	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
		slog.Bool("admin", user.IsAdmin),
	)
	return user, nil
}

// GetUser returns the user for id, or apperror.ErrNotFound.
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthenticated("Not authenticated")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all accounts. Admin only; the route enforces that.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: listing users: %w", err)
	}
	return users, nil
}

// LoginFailed records a failed login attempt for metrics.
func (s *AuthService) LoginFailed(reason string) {
	s.metrics.Login(reason)
}
