package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

func newTestCatalog(t *testing.T) *CatalogService {
	t.Helper()
	return NewCatalogService(newTestStore(t), testLogger())
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// =========================================================================
// PRODUCT TESTS
// =========================================================================

func TestCreateProduct_Success(t *testing.T) {
	svc := newTestCatalog(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "  Tea  "})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	p, err := svc.CreateProduct(ctx, ProductInput{
		Name:       "  Green tea ",
		Price:      decimal.RequireFromString("4.20"),
		CategoryID: &cat.ID,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if p.Name != "Green tea" {
		t.Errorf("Name = %q, want trimmed", p.Name)
	}
	if !p.Active {
		t.Error("new products should be active by default")
	}
	if p.Category == nil || p.Category.Name != "Tea" {
		t.Errorf("Category = %+v, want joined Tea", p.Category)
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := newTestCatalog(t)
	missing := "no-such-category"

	tests := []struct {
		name      string
		in        ProductInput
		wantField string
	}{
		{"empty name", ProductInput{Name: "  ", Price: decimal.NewFromInt(1)}, "name"},
		{"negative price", ProductInput{Name: "x", Price: decimal.NewFromInt(-1)}, "price"},
		{"negative original price", ProductInput{Name: "x", Price: decimal.NewFromInt(1),
			OriginalPrice: decimal.NewNullDecimal(decimal.NewFromInt(-2))}, "originalPrice"},
		{"unknown category", ProductInput{Name: "x", Price: decimal.NewFromInt(1), CategoryID: &missing}, "categoryId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tt.in)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	svc := newTestCatalog(t)
	ctx := context.Background()
	p, _ := svc.CreateProduct(ctx, ProductInput{Name: "Kettle", Price: decimal.NewFromInt(30)})

	inactive := false
	updated, err := svc.UpdateProduct(ctx, p.ID, ProductInput{
		Name:   "Electric kettle",
		Price:  decimal.NewFromInt(35),
		Active: &inactive,
	})
	if err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if updated.Name != "Electric kettle" || updated.Active {
		t.Errorf("after update: %+v", updated)
	}

	if _, err := svc.UpdateProduct(ctx, "missing", ProductInput{Name: "x"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProduct(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteProduct_HidesFromShoppers(t *testing.T) {
	svc := newTestCatalog(t)
	ctx := context.Background()
	p, _ := svc.CreateProduct(ctx, ProductInput{Name: "Teapot", Price: decimal.NewFromInt(25)})

	if err := svc.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}

	if _, err := svc.GetProduct(ctx, p.ID, false); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("shopper GetProduct() error = %v, want ErrNotFound", err)
	}
	got, err := svc.GetProduct(ctx, p.ID, true)
	if err != nil {
		t.Fatalf("admin GetProduct() error = %v", err)
	}
	if got.Active {
		t.Error("deleted product should be inactive")
	}

	list, _ := svc.ListProducts(ctx, model.ProductFilter{})
	if len(list) != 0 {
		t.Errorf("deleted product still listed: %+v", list)
	}
}

// =========================================================================
// LISTING TESTS
// =========================================================================

func TestListProducts_CategoryAndPriceRange(t *testing.T) {
	svc := newTestCatalog(t)
	ctx := context.Background()

	tea, _ := svc.CreateCategory(ctx, CategoryInput{Name: "Tea"})
	cups, _ := svc.CreateCategory(ctx, CategoryInput{Name: "Cups"})

	svc.CreateProduct(ctx, ProductInput{Name: "Cheap tea", Price: decimal.NewFromInt(2), CategoryID: &tea.ID})
	want, _ := svc.CreateProduct(ctx, ProductInput{Name: "Good tea", Price: decimal.NewFromInt(12), CategoryID: &tea.ID})
	svc.CreateProduct(ctx, ProductInput{Name: "Good cup", Price: decimal.NewFromInt(12), CategoryID: &cups.ID})

	got, err := svc.ListProducts(ctx, model.ProductFilter{
		CategoryID: tea.ID,
		MinPrice:   dec("10"),
		MaxPrice:   dec("20"),
	})
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != want.ID {
		t.Errorf("ListProducts() = %+v, want only %q", got, want.Name)
	}
}

func TestListProducts_InvalidRange(t *testing.T) {
	svc := newTestCatalog(t)

	tests := []struct {
		name   string
		filter model.ProductFilter
	}{
		{"min greater than max", model.ProductFilter{MinPrice: dec("10"), MaxPrice: dec("5")}},
		{"negative min", model.ProductFilter{MinPrice: dec("-1")}},
		{"negative max", model.ProductFilter{MaxPrice: dec("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListProducts(context.Background(), tt.filter)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
}

// =========================================================================
// CATEGORY TESTS
// =========================================================================

func TestCreateCategory(t *testing.T) {
	svc := newTestCatalog(t)
	ctx := context.Background()

	if _, err := svc.CreateCategory(ctx, CategoryInput{Name: ""}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty name error = %v, want validation error", err)
	}

	if _, err := svc.CreateCategory(ctx, CategoryInput{Name: "Spoons"}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := svc.CreateCategory(ctx, CategoryInput{Name: "Spoons"}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate error = %v, want ErrConflict", err)
	}

	cats, _ := svc.ListCategories(ctx)
	if len(cats) != 1 {
		t.Errorf("got %d categories, want 1", len(cats))
	}
}
