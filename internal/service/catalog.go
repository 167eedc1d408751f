// Package service contains the business rules of the storefront.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services take primitives and domain types, never *http.Request, and return
// apperror values, never status codes. That keeps them callable from HTTP
// handlers, the CLI and tests alike.
//
// Services depend on repository interfaces. Tests run them against an
// in-memory SQLite database or a hand-written fake.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

const (
	MaxProductNameLength  = 200
	MaxDescriptionLength  = 5000
	MaxCategoryNameLength = 100
)

// CatalogRepository is what the catalog needs from storage.
type CatalogRepository interface {
	repository.ProductRepository
	repository.CategoryRepository
}

// CatalogService handles products and categories.
type CatalogService struct {
	repo   CatalogRepository
	logger *slog.Logger
}

func NewCatalogService(repo CatalogRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

// ProductInput is the writable part of a product, used by create and update.
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	ImageURL      string
	CategoryID    *string
	Featured      bool
	Active        *bool // nil means "active" on create and "unchanged" on update
}

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	Name        string
	Description string
}

// ListProducts validates the filter and runs the query.
//
// A negative bound or min > max is rejected rather than silently returning
// nothing, so a client bug shows up as a 400.
func (s *CatalogService) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.CategoryID = strings.TrimSpace(f.CategoryID)

	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return nil, apperror.ValidationFailed("minPrice", "minPrice must not be negative")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return nil, apperror.ValidationFailed("maxPrice", "maxPrice must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, apperror.ValidationFailed("minPrice", "minPrice must not be greater than maxPrice")
	}

	products, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// GetProduct returns a product. Inactive products are hidden from shoppers
// (NotFound) but visible to admins.
func (s *CatalogService) GetProduct(ctx context.Context, id string, includeInactive bool) (*model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "product ID is required")
	}

	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active && !includeInactive {
		return nil, apperror.NotFound("product", id)
	}
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := s.validateProduct(ctx, &in); err != nil {
		return nil, err
	}

	p := &model.Product{Active: true}
	applyProductInput(p, in)

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		s.logger.Error("failed to create product",
			slog.String("name", p.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating product: %w", err)
	}

	s.logger.Info("product created",
		slog.String("id", p.ID),
		slog.String("name", p.Name),
		slog.String("price", p.Price.String()),
	)
	return s.repo.GetProduct(ctx, p.ID)
}

// UpdateProduct replaces the product's writable fields.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*model.Product, error) {
	p, err := s.GetProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.validateProduct(ctx, &in); err != nil {
		return nil, err
	}

	applyProductInput(p, in)
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("updating product %s: %w", id, err)
	}

	s.logger.Info("product updated", slog.String("id", id))
	return s.repo.GetProduct(ctx, id)
}

// DeleteProduct hides the product from the catalog. Past orders keep
// pointing at it, so the row stays.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "product ID is required")
	}
	if err := s.repo.DeactivateProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deactivated", slog.String("id", id))
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// CreateCategory returns apperror.ErrConflict when the name is taken.
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "category name is required")
	}
	if len(name) > MaxCategoryNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryNameLength))
	}

	c := &model.Category{Name: name, Description: strings.TrimSpace(in.Description)}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("category created", slog.String("id", c.ID), slog.String("name", c.Name))
	return c, nil
}

func (s *CatalogService) validateProduct(ctx context.Context, in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	if in.Name == "" {
		return apperror.ValidationFailed("name", "product name is required")
	}
	if len(in.Name) > MaxProductNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("product name must be %d characters or less", MaxProductNameLength))
	}
	if len(in.Description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	if in.Price.IsNegative() {
		return apperror.ValidationFailed("price", "price must not be negative")
	}
	if in.OriginalPrice.Valid && in.OriginalPrice.Decimal.IsNegative() {
		return apperror.ValidationFailed("originalPrice", "originalPrice must not be negative")
	}

	if in.CategoryID != nil {
		id := strings.TrimSpace(*in.CategoryID)
		if id == "" {
			in.CategoryID = nil
			return nil
		}
		in.CategoryID = &id
		if _, err := s.repo.GetCategory(ctx, id); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.ValidationFailed("categoryId", "category does not exist")
			}
			return fmt.Errorf("checking category %s: %w", id, err)
		}
	}
	return nil
}

func applyProductInput(p *model.Product, in ProductInput) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.OriginalPrice = in.OriginalPrice
	p.ImageURL = in.ImageURL
	p.CategoryID = in.CategoryID
	p.Featured = in.Featured
	if in.Active != nil {
		p.Active = *in.Active
	}
}
