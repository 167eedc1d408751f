// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no C compiler, no CGo, cross-compiles
// anywhere Go does. The whole store is one file on disk, or ":memory:" in tests.
//
// ONE CONNECTION:
// The pool is capped at a single open connection. SQLite serializes writers
// anyway, and an in-memory database exists per connection, so a second pooled
// connection would see an empty database. With one connection every
// transaction runs strictly one after another, which is exactly what cart
// increments and checkout need.
//
// TIMESTAMPS are always written in UTC so that the text SQLite stores for
// them sorts chronologically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/storefront/internal/repository"
)

// queryer is the subset of *sql.DB and *sql.Tx the repositories use. Methods
// on DB go through it, so the same code runs inside or outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
	q    queryer
	inTx bool
}

var _ repository.Store = (*DB)(nil)

// New opens the database and runs migrations.
//
// dbPath examples:
//   - "data/storefront.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, q: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// InTx runs fn inside a transaction.
//
// The *DB handed to fn shares the pool but sends every statement through the
// *sql.Tx. With a single pooled connection, a statement sent to the pool
// instead of the tx would wait forever for the connection the tx holds.
func (db *DB) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if db.inTx {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning sql.ErrTxDone.
	defer tx.Rollback()

	if err := fn(&DB{conn: db.conn, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates every table. CREATE TABLE IF NOT EXISTS makes it safe to run
// on each start.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id                TEXT PRIMARY KEY,
				email             TEXT NOT NULL DEFAULT '',
				first_name        TEXT NOT NULL DEFAULT '',
				last_name         TEXT NOT NULL DEFAULT '',
				profile_image_url TEXT NOT NULL DEFAULT '',
				is_admin          INTEGER NOT NULL DEFAULT 0,
				created_at        DATETIME NOT NULL,
				updated_at        DATETIME NOT NULL
			);`},
		{"categories", `
			CREATE TABLE IF NOT EXISTS categories (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				created_at  DATETIME NOT NULL,
				updated_at  DATETIME NOT NULL
			);`},
		{"products", `
			CREATE TABLE IF NOT EXISTS products (
				id             TEXT PRIMARY KEY,
				name           TEXT NOT NULL,
				description    TEXT NOT NULL DEFAULT '',
				price          NUMERIC NOT NULL CHECK (price >= 0),
				original_price NUMERIC,
				image_url      TEXT NOT NULL DEFAULT '',
				category_id    TEXT REFERENCES categories(id) ON DELETE SET NULL,
				featured       INTEGER NOT NULL DEFAULT 0,
				active         INTEGER NOT NULL DEFAULT 1,
				search_text    TEXT NOT NULL DEFAULT '',
				created_at     DATETIME NOT NULL,
				updated_at     DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id);
			CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);`},
		{"cart_items", `
			CREATE TABLE IF NOT EXISTS cart_items (
				id         TEXT PRIMARY KEY,
				owner_key  TEXT NOT NULL,
				user_id    TEXT REFERENCES users(id),
				session_id TEXT,
				product_id TEXT NOT NULL REFERENCES products(id),
				quantity   INTEGER NOT NULL CHECK (quantity > 0),
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				CHECK ((user_id IS NULL) <> (session_id IS NULL)),
				UNIQUE (owner_key, product_id)
			);`},
		{"orders", `
			CREATE TABLE IF NOT EXISTS orders (
				id               TEXT PRIMARY KEY,
				user_id          TEXT REFERENCES users(id),
				session_id       TEXT,
				total            NUMERIC NOT NULL,
				status           TEXT NOT NULL,
				shipping_address TEXT NOT NULL,
				created_at       DATETIME NOT NULL,
				updated_at       DATETIME NOT NULL,
				CHECK ((user_id IS NULL) <> (session_id IS NULL))
			);
			CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
			CREATE INDEX IF NOT EXISTS idx_orders_session_id ON orders(session_id);`},
		{"order_items", `
			CREATE TABLE IF NOT EXISTS order_items (
				id         TEXT PRIMARY KEY,
				order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				product_id TEXT NOT NULL REFERENCES products(id),
				quantity   INTEGER NOT NULL CHECK (quantity > 0),
				price      NUMERIC NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);`},
		{"contact_messages", `
			CREATE TABLE IF NOT EXISTS contact_messages (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				email      TEXT NOT NULL,
				subject    TEXT NOT NULL,
				message    TEXT NOT NULL,
				status     TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);`},
		// expires_at is unix nanoseconds so expiry checks are integer comparisons.
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				sid        TEXT PRIMARY KEY,
				user_id    TEXT,
				created_at DATETIME NOT NULL,
				expires_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return db.migrateProductSearchText()
}

// migrateProductSearchText adds products.search_text to databases created
// before the column existed and fills it for the existing rows.
func (db *DB) migrateProductSearchText() error {
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('products') WHERE name = 'search_text'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspecting products table: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.conn.Exec(`ALTER TABLE products ADD COLUMN search_text TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("adding products.search_text: %w", err)
	}

	rows, err := db.conn.Query(`SELECT id, name, description FROM products`)
	if err != nil {
		return fmt.Errorf("reading products for search_text: %w", err)
	}
	type row struct{ id, text string }
	var pending []row
	for rows.Next() {
		var id, name, desc string
		if err := rows.Scan(&id, &name, &desc); err != nil {
			rows.Close()
			return fmt.Errorf("scanning product for search_text: %w", err)
		}
		pending = append(pending, row{id, productSearchText(name, desc)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating products for search_text: %w", err)
	}

	for _, r := range pending {
		if _, err := db.conn.Exec(`UPDATE products SET search_text = ? WHERE id = ?`, r.text, r.id); err != nil {
			return fmt.Errorf("filling search_text for %s: %w", r.id, err)
		}
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func now() time.Time {
	return time.Now().UTC()
}

// isUniqueViolation reports whether err is SQLite rejecting a duplicate key.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// checkAffected turns "UPDATE/DELETE matched nothing" into notFound.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
