// Package repository defines the storage interfaces the services depend on.
//
// Services never see SQL. They receive a Store and call these methods, so the
// business rules can be tested against an in-memory SQLite database and the
// storage engine can change without touching them.
package repository

import (
	"context"

	"github.com/sakif/storefront/internal/model"
)

// UserRepository stores accounts created by OAuth logins.
type UserRepository interface {
	// Upsert inserts the user or refreshes email, names and image of the
	// existing row with the same ID. IsAdmin can be raised by an upsert but
	// never lowered.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

type CategoryRepository interface {
	// CreateCategory returns apperror.ErrConflict when the name is taken.
	CreateCategory(ctx context.Context, c *model.Category) error
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	// GetProduct returns the product with its category joined, active or not.
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	// DeactivateProduct hides a product from the catalog. Rows are never
	// deleted because order items keep pointing at them.
	DeactivateProduct(ctx context.Context, id string) error
}

// CartRepository stores cart lines. Every method is scoped to an owner: an
// item that exists but belongs to someone else is reported as not found.
type CartRepository interface {
	ListCartItems(ctx context.Context, owner model.Owner) ([]model.CartItem, error)
	// AddCartItem creates the (owner, product) line or increments the
	// existing one in a single statement.
	AddCartItem(ctx context.Context, owner model.Owner, productID string, quantity int) (*model.CartItem, error)
	GetCartItem(ctx context.Context, owner model.Owner, id string) (*model.CartItem, error)
	SetCartItemQuantity(ctx context.Context, owner model.Owner, id string, quantity int) error
	DeleteCartItem(ctx context.Context, owner model.Owner, id string) error
	// ClearCart removes every line of the owner and reports how many.
	ClearCart(ctx context.Context, owner model.Owner) (int64, error)
}

type OrderRepository interface {
	// CreateOrder inserts the order and all of its items.
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByOwner(ctx context.Context, owner model.Owner) ([]model.Order, error)
	ListAllOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
}

type ContactRepository interface {
	CreateContactMessage(ctx context.Context, m *model.ContactMessage) error
	ListContactMessages(ctx context.Context) ([]model.ContactMessage, error)
}

// Store bundles every repository behind one handle.
type Store interface {
	UserRepository
	CategoryRepository
	ProductRepository
	CartRepository
	OrderRepository
	ContactRepository

	// InTx runs fn inside a transaction. The Store passed to fn routes every
	// call through that transaction. fn's error rolls everything back;
	// a nil return commits. Calling InTx on a transactional Store simply
	// runs fn in the outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
