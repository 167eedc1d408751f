package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/metrics"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

const (
	MaxContactFieldLength   = 200
	MaxContactMessageLength = 5000
)

type ContactService struct {
	repo    repository.ContactRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewContactService(repo repository.ContactRepository, m *metrics.Metrics, logger *slog.Logger) *ContactService {
	return &ContactService{repo: repo, metrics: m, logger: logger}
}

// ContactInput is a contact form submission.
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// Submit validates and stores a message with status "new".
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*model.ContactMessage, error) {
	m := &model.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
		Status:  model.ContactStatusNew,
	}

	required := []struct{ field, value string }{
		{"name", m.Name}, {"email", m.Email}, {"subject", m.Subject}, {"message", m.Message},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, apperror.ValidationFailed(r.field, r.field+" is required")
		}
	}
	if len(m.Name) > MaxContactFieldLength || len(m.Subject) > MaxContactFieldLength {
		return nil, apperror.ValidationFailed("subject",
			fmt.Sprintf("name and subject must be %d characters or less", MaxContactFieldLength))
	}
	if len(m.Message) > MaxContactMessageLength {
		return nil, apperror.ValidationFailed("message",
			fmt.Sprintf("message must be %d characters or less", MaxContactMessageLength))
	}

	// ParseAddress accepts "Name <addr>" too; only a bare address is stored.
	addr, err := mail.ParseAddress(m.Email)
	if err != nil {
		return nil, apperror.ValidationFailed("email", "email must be a valid address")
	}
	m.Email = addr.Address

	if err := s.repo.CreateContactMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("storing contact message: %w", err)
	}

	s.metrics.ContactMessage()
	s.logger.Info("contact message received",
		slog.String("id", m.ID),
		slog.String("subject", m.Subject),
	)
	return m, nil
}

// List returns all messages, newest first.
func (s *ContactService) List(ctx context.Context) ([]model.ContactMessage, error) {
	messages, err := s.repo.ListContactMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing contact messages: %w", err)
	}
	return messages, nil
}
