package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers (12.5), not strings ("12.5"),
	// matching what the storefront client expects.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category groups products in the catalog.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Product is a catalog entry.
//
// WHY decimal.Decimal FOR MONEY?
// float64 cannot represent 0.1 exactly, so 3 x 19.99 drifts by fractions of a
// cent. decimal.Decimal does exact base-10 arithmetic, which is what order
// totals need.
//
// OriginalPrice is optional: when set and higher than Price the UI shows a
// strike-through discount.
//
// CategoryID is a pointer because a product may be uncategorised. Category is
// filled only by queries that join the categories table.
type Product struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"originalPrice"`
	ImageURL      string              `json:"imageUrl"`
	CategoryID    *string             `json:"categoryId"`
	Featured      bool                `json:"featured"`
	Active        bool                `json:"active"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	Category      *Category           `json:"category,omitempty"`
}

// ProductFilter narrows a catalog listing. A nil/empty field means "no
// constraint on that dimension".
type ProductFilter struct {
	Search          string           // case-insensitive substring of name or description
	CategoryID      string           // exact category id
	MinPrice        *decimal.Decimal // inclusive lower bound
	MaxPrice        *decimal.Decimal // inclusive upper bound
	FeaturedOnly    bool
	IncludeInactive bool // admin listings only
}
