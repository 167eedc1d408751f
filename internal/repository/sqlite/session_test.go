package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/session"
)

// =========================================================================
// SESSION STORE TESTS
// =========================================================================

func TestSessionStore_SaveGet(t *testing.T) {
	store := newTestDB(t).Sessions()
	ctx := context.Background()

	s := &session.Session{
		ID:        "sid-1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Authenticated() {
		t.Error("new session should be anonymous")
	}
	if !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, s.ExpiresAt)
	}

	s.UserID = "google-9"
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, _ = store.Get(ctx, "sid-1")
	if got.UserID != "google-9" {
		t.Errorf("UserID = %q, want google-9", got.UserID)
	}
}

func TestSessionStore_ExpiredAndDeleted(t *testing.T) {
	store := newTestDB(t).Sessions()
	ctx := context.Background()
	now := time.Now()

	store.Save(ctx, &session.Session{ID: "old", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)})
	store.Save(ctx, &session.Session{ID: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})

	if _, err := store.Get(ctx, "old"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get(expired) error = %v, want ErrNotFound", err)
	}

	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", n)
	}

	if err := store.Delete(ctx, "live"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "live"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// CONTACT TESTS
// =========================================================================

func TestContactMessages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	m := &model.ContactMessage{Name: "Lin", Email: "lin@example.com", Subject: "Hi", Message: "Hello there"}
	if err := db.CreateContactMessage(ctx, m); err != nil {
		t.Fatalf("CreateContactMessage() error = %v", err)
	}
	if m.Status != model.ContactStatusNew {
		t.Errorf("Status = %q, want %q", m.Status, model.ContactStatusNew)
	}

	got, err := db.ListContactMessages(ctx)
	if err != nil {
		t.Fatalf("ListContactMessages() error = %v", err)
	}
	if len(got) != 1 || got[0].Subject != "Hi" {
		t.Errorf("ListContactMessages() = %+v", got)
	}
}
