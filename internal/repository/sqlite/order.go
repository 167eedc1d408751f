package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.OrderRepository = (*DB)(nil)

// CreateOrder inserts the order row and one row per item. Callers that need
// all-or-nothing semantics (checkout) run it inside InTx.
func (db *DB) CreateOrder(ctx context.Context, o *model.Order) error {
	o.ID = xid.New().String()
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, session_id, total, status, shipping_address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		nullString(o.UserID),
		nullString(o.SessionID),
		o.Total,
		string(o.Status),
		o.ShippingAddress,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.ID = xid.New().String()
		item.OrderID = o.ID

		_, err := db.q.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, price)
			 VALUES (?, ?, ?, ?, ?)`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating order item for product %s: %w", item.ProductID, err)
		}
	}
	return nil
}

const orderSelect = `
	SELECT id, user_id, session_id, total, status, shipping_address, created_at, updated_at
	FROM orders`

func scanOrder(s rowScanner) (*model.Order, error) {
	var (
		o         model.Order
		userID    sql.NullString
		sessionID sql.NullString
	)
	err := s.Scan(&o.ID, &userID, &sessionID, &o.Total, &o.Status,
		&o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.UserID = userID.String
	o.SessionID = sessionID.String
	return &o, nil
}

// GetOrder returns the order with its items.
func (db *DB) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(db.q.QueryRowContext(ctx, orderSelect+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("order", id)
		}
		return nil, fmt.Errorf("sqlite: getting order %s: %w", id, err)
	}

	orders := []model.Order{*o}
	if err := db.attachOrderItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrdersByOwner returns the owner's orders, newest first.
func (db *DB) ListOrdersByOwner(ctx context.Context, owner model.Owner) ([]model.Order, error) {
	if owner.UserID != "" {
		return db.listOrders(ctx, ` WHERE user_id = ?`, owner.UserID)
	}
	return db.listOrders(ctx, ` WHERE session_id = ?`, owner.SessionID)
}

// ListAllOrders returns every order, newest first.
func (db *DB) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	return db.listOrders(ctx, "")
}

func (db *DB) listOrders(ctx context.Context, where string, args ...any) ([]model.Order, error) {
	rows, err := db.q.QueryContext(ctx,
		orderSelect+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating orders: %w", err)
	}
	// rows must be closed before the next query: there is only one connection.
	rows.Close()

	if err := db.attachOrderItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachOrderItems loads the items of all given orders with a single IN query
// rather than one query per order.
//
// Item.Price is the stored snapshot. The joined Product carries the live
// name and image for display only.
func (db *DB) attachOrderItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[string]int, len(orders))
	args := make([]any, len(orders))
	for i := range orders {
		orders[i].Items = []model.OrderItem{}
		index[orders[i].ID] = i
		args[i] = orders[i].ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orders)), ",")

	rows, err := db.q.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price,
		        p.id, p.name, p.description, p.price, p.image_url, p.active
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id IN (`+placeholders+`)
		 ORDER BY oi.rowid`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item model.OrderItem
			p    model.Product
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Active,
		); err != nil {
			return fmt.Errorf("sqlite: scanning order item row: %w", err)
		}
		item.Product = &p

		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating order items: %w", err)
	}
	return nil
}

func (db *DB) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	res, err := db.q.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating status of order %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("order", id))
}
