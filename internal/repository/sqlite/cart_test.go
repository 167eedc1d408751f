package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

// =========================================================================
// ADD TESTS
// =========================================================================

func TestAddCartItem_IncrementsExistingLine(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, db, "Socks", "3.50", nil)
	owner := model.SessionOwner("sess-1")

	first, err := db.AddCartItem(ctx, owner, p.ID, 2)
	if err != nil {
		t.Fatalf("AddCartItem() error = %v", err)
	}
	second, err := db.AddCartItem(ctx, owner, p.ID, 3)
	if err != nil {
		t.Fatalf("second AddCartItem() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second add created a new line %s, want %s", second.ID, first.ID)
	}
	if second.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5", second.Quantity)
	}

	items, _ := db.ListCartItems(ctx, owner)
	if len(items) != 1 {
		t.Errorf("got %d lines, want 1", len(items))
	}
}

func TestAddCartItem_JoinsLiveProduct(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, db, "Hat", "20", nil)
	u := createTestUser(t, db, "google-hat")

	item, err := db.AddCartItem(ctx, model.UserOwner(u.ID), p.ID, 1)
	if err != nil {
		t.Fatalf("AddCartItem() error = %v", err)
	}
	if item.Product.Name != "Hat" || item.Product.Price.String() != "20" {
		t.Errorf("Product = %+v", item.Product)
	}
	if item.Owner.UserID != u.ID {
		t.Errorf("Owner = %+v, want user %s", item.Owner, u.ID)
	}
}

func TestAddCartItem_UserAndSessionCartsAreSeparate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, db, "Scarf", "9", nil)
	u := createTestUser(t, db, "google-scarf")

	db.AddCartItem(ctx, model.UserOwner(u.ID), p.ID, 1)
	db.AddCartItem(ctx, model.SessionOwner("sess-x"), p.ID, 4)

	userItems, _ := db.ListCartItems(ctx, model.UserOwner(u.ID))
	guestItems, _ := db.ListCartItems(ctx, model.SessionOwner("sess-x"))

	if len(userItems) != 1 || userItems[0].Quantity != 1 {
		t.Errorf("user cart = %+v", userItems)
	}
	if len(guestItems) != 1 || guestItems[0].Quantity != 4 {
		t.Errorf("guest cart = %+v", guestItems)
	}
}

// =========================================================================
// OWNERSHIP TESTS
// =========================================================================

func TestCartItem_CrossOwnerIsNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, db, "Gloves", "12", nil)

	alice := model.SessionOwner("alice")
	mallory := model.SessionOwner("mallory")
	item, _ := db.AddCartItem(ctx, alice, p.ID, 2)

	if _, err := db.GetCartItem(ctx, mallory, item.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetCartItem() cross-owner error = %v, want ErrNotFound", err)
	}
	if err := db.SetCartItemQuantity(ctx, mallory, item.ID, 99); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetCartItemQuantity() cross-owner error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteCartItem(ctx, mallory, item.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteCartItem() cross-owner error = %v, want ErrNotFound", err)
	}

	// Alice's line is untouched.
	got, err := db.GetCartItem(ctx, alice, item.ID)
	if err != nil {
		t.Fatalf("GetCartItem() error = %v", err)
	}
	if got.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", got.Quantity)
	}
}

func TestSetCartItemQuantity_RejectsZero(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, db, "Belt", "15", nil)
	owner := model.SessionOwner("s")
	item, _ := db.AddCartItem(ctx, owner, p.ID, 1)

	if err := db.SetCartItemQuantity(ctx, owner, item.ID, 0); err == nil {
		t.Error("SetCartItemQuantity(0) should violate the quantity CHECK")
	}
}

func TestClearCart(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestProduct(t, db, "A", "1", nil)
	b := createTestProduct(t, db, "B", "2", nil)
	owner := model.SessionOwner("s")
	other := model.SessionOwner("other")

	db.AddCartItem(ctx, owner, a.ID, 1)
	db.AddCartItem(ctx, owner, b.ID, 1)
	db.AddCartItem(ctx, other, a.ID, 1)

	n, err := db.ClearCart(ctx, owner)
	if err != nil {
		t.Fatalf("ClearCart() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ClearCart() removed %d lines, want 2", n)
	}

	left, _ := db.ListCartItems(ctx, other)
	if len(left) != 1 {
		t.Errorf("other owner's cart was touched: %+v", left)
	}
}
