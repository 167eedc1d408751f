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

var _ repository.ProductRepository = (*DB)(nil)

// productSelect joins the optional category so every read returns the
// product together with its category in one round trip.
const productSelect = `
	SELECT p.id, p.name, p.description, p.price, p.original_price, p.image_url,
	       p.category_id, p.featured, p.active, p.created_at, p.updated_at,
	       c.id, c.name, c.description, c.created_at, c.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(s rowScanner) (*model.Product, error) {
	var (
		p          model.Product
		categoryID sql.NullString
		catID      sql.NullString
		catName    sql.NullString
		catDesc    sql.NullString
		catCreated sql.NullTime
		catUpdated sql.NullTime
	)
	err := s.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.ImageURL,
		&categoryID, &p.Featured, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catName, &catDesc, &catCreated, &catUpdated,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	if catID.Valid {
		p.Category = &model.Category{
			ID:          catID.String,
			Name:        catName.String,
			Description: catDesc.String,
			CreatedAt:   catCreated.Time,
			UpdatedAt:   catUpdated.Time,
		}
	}
	return &p, nil
}

func (db *DB) CreateProduct(ctx context.Context, p *model.Product) error {
	p.ID = xid.New().String()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO products (id, name, description, price, original_price, image_url,
		                       category_id, featured, active, search_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.ImageURL,
		p.CategoryID, p.Featured, p.Active, productSearchText(p.Name, p.Description),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating product: %w", err)
	}
	return nil
}

// GetProduct returns apperror.ErrNotFound if no product exists with that ID.
// Inactive products are returned; callers decide whether to show them.
func (db *DB) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(db.q.QueryRowContext(ctx, productSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("product", id)
		}
		return nil, fmt.Errorf("sqlite: getting product %s: %w", id, err)
	}
	return p, nil
}

// ListProducts builds the WHERE clause from the filter. Every user-supplied
// value is a bound parameter; only fixed SQL fragments are concatenated.
//
// Search matches against search_text, which holds name and description
// lowercased in Go. SQLite's lower() only folds ASCII, so both sides are
// folded the same way here. % and _ in the search text match literally.
func (db *DB) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	var (
		where []string
		args  []any
	)

	if !f.IncludeInactive {
		where = append(where, "p.active = 1")
	}
	if f.Search != "" {
		where = append(where, `p.search_text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	if f.CategoryID != "" {
		where = append(where, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.MinPrice != nil {
		where = append(where, "p.price >= ?")
		args = append(args, f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, f.MaxPrice.InexactFloat64())
	}
	if f.FeaturedOnly {
		where = append(where, "p.featured = 1")
	}

	query := productSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at, p.id"

	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating products: %w", err)
	}
	return products, nil
}

// UpdateProduct overwrites every mutable column.
func (db *DB) UpdateProduct(ctx context.Context, p *model.Product) error {
	p.UpdatedAt = now()

	res, err := db.q.ExecContext(ctx,
		`UPDATE products
		 SET name = ?, description = ?, price = ?, original_price = ?, image_url = ?,
		     category_id = ?, featured = ?, active = ?, search_text = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Price, p.OriginalPrice, p.ImageURL,
		p.CategoryID, p.Featured, p.Active, productSearchText(p.Name, p.Description), p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating product %s: %w", p.ID, err)
	}
	return checkAffected(res, apperror.NotFound("product", p.ID))
}

func (db *DB) DeactivateProduct(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx,
		`UPDATE products SET active = 0, updated_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: deactivating product %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("product", id))
}

// productSearchText is the folded text ListProducts searches. The newline
// keeps a search from matching across the end of the name.
func productSearchText(name, description string) string {
	return strings.ToLower(name) + "\n" + strings.ToLower(description)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
