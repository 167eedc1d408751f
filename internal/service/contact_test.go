package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

func validContact() ContactInput {
	return ContactInput{
		Name:    "Ada",
		Email:   "Ada Lovelace <ada@example.com>",
		Subject: "Order question",
		Message: "Where is my teapot?",
	}
}

func TestContactSubmit_Success(t *testing.T) {
	svc := NewContactService(newTestStore(t), nil, testLogger())
	ctx := context.Background()

	m, err := svc.Submit(ctx, validContact())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if m.Email != "ada@example.com" {
		t.Errorf("Email = %q, want bare address", m.Email)
	}
	if m.Status != model.ContactStatusNew {
		t.Errorf("Status = %q, want %q", m.Status, model.ContactStatusNew)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != m.ID {
		t.Errorf("List() = %+v, want the submitted message", list)
	}
}

func TestContactSubmit_Validation(t *testing.T) {
	svc := NewContactService(newTestStore(t), nil, testLogger())

	tests := []struct {
		name      string
		mutate    func(*ContactInput)
		wantField string
	}{
		{"missing name", func(in *ContactInput) { in.Name = " " }, "name"},
		{"missing email", func(in *ContactInput) { in.Email = "" }, "email"},
		{"missing subject", func(in *ContactInput) { in.Subject = "" }, "subject"},
		{"missing message", func(in *ContactInput) { in.Message = "\n" }, "message"},
		{"bad email", func(in *ContactInput) { in.Email = "not-an-email" }, "email"},
		{"long message", func(in *ContactInput) { in.Message = strings.Repeat("x", MaxContactMessageLength+1) }, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validContact()
			tt.mutate(&in)
			_, err := svc.Submit(context.Background(), in)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Submit() error = %v, want validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}
