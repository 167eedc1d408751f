package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Upsert inserts or refreshes a user keyed by the provider-issued ID.
//
// INSERT ... ON CONFLICT DO UPDATE keeps the row (and its created_at) and only
// overwrites the profile fields Google owns. is_admin is OR-ed so a login can
// promote a bootstrap admin but never demote anyone.
//
// RETURNING hands back the stored admin flag and timestamps, so the caller's
// struct reflects the row as it is now.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	t := now()

	err := db.q.QueryRowContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, profile_image_url, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			email             = excluded.email,
			first_name        = excluded.first_name,
			last_name         = excluded.last_name,
			profile_image_url = excluded.profile_image_url,
			is_admin          = users.is_admin OR excluded.is_admin,
			updated_at        = excluded.updated_at
		 RETURNING is_admin, created_at, updated_at`,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ProfileImageURL,
		user.IsAdmin,
		t,
		t,
	).Scan(&user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user %s: %w", user.ID, err)
	}
	return nil
}

const userColumns = `id, email, first_name, last_name, profile_image_url, is_admin, created_at, updated_at`

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	err := s.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.ProfileImageURL,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return &u, err
}

// GetUserByID returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// ListUsers returns every account, oldest first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}
