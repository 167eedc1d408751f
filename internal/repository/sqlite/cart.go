package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.CartRepository = (*DB)(nil)

// OWNER SCOPING:
// Every query filters on owner_key, the single column that encodes "user:<id>"
// or "session:<id>". An item id that belongs to another owner simply matches
// no row, so it is indistinguishable from an id that does not exist.

const cartSelect = `
	SELECT ci.id, ci.product_id, ci.quantity, ci.user_id, ci.session_id,
	       ci.created_at, ci.updated_at,
	       p.id, p.name, p.price, p.image_url, p.active
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id`

func scanCartItem(s rowScanner) (*model.CartItem, error) {
	var (
		item      model.CartItem
		userID    sql.NullString
		sessionID sql.NullString
	)
	err := s.Scan(
		&item.ID, &item.ProductID, &item.Quantity, &userID, &sessionID,
		&item.CreatedAt, &item.UpdatedAt,
		&item.Product.ID, &item.Product.Name, &item.Product.Price,
		&item.Product.ImageURL, &item.Product.Active,
	)
	if err != nil {
		return nil, err
	}
	item.Owner = model.Owner{UserID: userID.String, SessionID: sessionID.String}
	return &item, nil
}

// ListCartItems returns the owner's lines in the order they were added.
func (db *DB) ListCartItems(ctx context.Context, owner model.Owner) ([]model.CartItem, error) {
	rows, err := db.q.QueryContext(ctx,
		cartSelect+` WHERE ci.owner_key = ? ORDER BY ci.created_at, ci.id`, owner.Key())
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cart for %s: %w", owner, err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning cart row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cart: %w", err)
	}
	return items, nil
}

// AddCartItem is one statement: insert the line, or, when (owner, product)
// already exists, add to its quantity. Two concurrent adds can never read the
// same old quantity and overwrite each other.
func (db *DB) AddCartItem(ctx context.Context, owner model.Owner, productID string, quantity int) (*model.CartItem, error) {
	t := now()

	var id string
	err := db.q.QueryRowContext(ctx,
		`INSERT INTO cart_items (id, owner_key, user_id, session_id, product_id, quantity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_key, product_id) DO UPDATE SET
			quantity   = cart_items.quantity + excluded.quantity,
			updated_at = excluded.updated_at
		 RETURNING id`,
		xid.New().String(),
		owner.Key(),
		nullString(owner.UserID),
		nullString(owner.SessionID),
		productID,
		quantity,
		t,
		t,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: adding product %s to cart of %s: %w", productID, owner, err)
	}

	return db.GetCartItem(ctx, owner, id)
}

// GetCartItem returns apperror.ErrNotFound for missing ids and for ids owned
// by someone else.
func (db *DB) GetCartItem(ctx context.Context, owner model.Owner, id string) (*model.CartItem, error) {
	item, err := scanCartItem(db.q.QueryRowContext(ctx,
		cartSelect+` WHERE ci.id = ? AND ci.owner_key = ?`, id, owner.Key()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("cart item", id)
		}
		return nil, fmt.Errorf("sqlite: getting cart item %s: %w", id, err)
	}
	return item, nil
}

// SetCartItemQuantity overwrites the quantity. quantity must be positive;
// the table's CHECK constraint rejects anything else.
func (db *DB) SetCartItemQuantity(ctx context.Context, owner model.Owner, id string, quantity int) error {
	res, err := db.q.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ? AND owner_key = ?`,
		quantity, now(), id, owner.Key())
	if err != nil {
		return fmt.Errorf("sqlite: updating cart item %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("cart item", id))
}

func (db *DB) DeleteCartItem(ctx context.Context, owner model.Owner, id string) error {
	res, err := db.q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = ? AND owner_key = ?`, id, owner.Key())
	if err != nil {
		return fmt.Errorf("sqlite: deleting cart item %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("cart item", id))
}

func (db *DB) ClearCart(ctx context.Context, owner model.Owner) (int64, error) {
	res, err := db.q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE owner_key = ?`, owner.Key())
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing cart of %s: %w", owner, err)
	}
	return res.RowsAffected()
}
