package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository/sqlite"
)

// newTestStore returns a fresh in-memory database. Services that need
// transactions are tested against the real store rather than a fake, so the
// rollback behaviour under test is SQLite's own.
func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedProduct(t *testing.T, db *sqlite.DB, name, price string) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.RequireFromString(price), Active: true}
	if err := db.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return p
}

func seedUser(t *testing.T, db *sqlite.DB, id string) model.Owner {
	t.Helper()
	if err := db.Upsert(context.Background(), &model.User{ID: id, Email: id + "@example.com"}); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return model.UserOwner(id)
}
