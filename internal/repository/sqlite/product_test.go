package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

func ptr[T any](v T) *T { return &v }

// =========================================================================
// CATEGORY TESTS
// =========================================================================

func TestCreateCategory_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	createTestCategory(t, db, "Kitchen")

	err := db.CreateCategory(context.Background(), &model.Category{Name: "Kitchen"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateCategory() error = %v, want ErrConflict", err)
	}
}

func TestGetCategory(t *testing.T) {
	db := newTestDB(t)
	c := createTestCategory(t, db, "Garden")

	got, err := db.GetCategory(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if got.Name != "Garden" {
		t.Errorf("Name = %q, want %q", got.Name, "Garden")
	}

	if _, err := db.GetCategory(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetCategory(missing) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// PRODUCT TESTS
// =========================================================================

func TestGetProduct_JoinsCategory(t *testing.T) {
	db := newTestDB(t)
	c := createTestCategory(t, db, "Mugs")

	p := &model.Product{
		Name:          "Blue mug",
		Description:   "Holds coffee",
		Price:         decimal.RequireFromString("12.50"),
		OriginalPrice: decimal.NewNullDecimal(decimal.RequireFromString("15")),
		CategoryID:    &c.ID,
		Featured:      true,
		Active:        true,
	}
	if err := db.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	got, err := db.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if !got.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Price = %s, want 12.5", got.Price)
	}
	if !got.OriginalPrice.Valid || !got.OriginalPrice.Decimal.Equal(decimal.NewFromInt(15)) {
		t.Errorf("OriginalPrice = %+v, want 15", got.OriginalPrice)
	}
	if got.Category == nil || got.Category.Name != "Mugs" {
		t.Errorf("Category = %+v, want Mugs", got.Category)
	}
	if !got.Featured || !got.Active {
		t.Errorf("flags = featured:%v active:%v, want both true", got.Featured, got.Active)
	}
}

func TestGetProduct_Uncategorised(t *testing.T) {
	db := newTestDB(t)
	p := createTestProduct(t, db, "Loose item", "1", nil)

	got, err := db.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got.CategoryID != nil || got.Category != nil {
		t.Errorf("expected no category, got id=%v category=%+v", got.CategoryID, got.Category)
	}
	if got.OriginalPrice.Valid {
		t.Error("OriginalPrice should be NULL")
	}
}

func TestListProducts_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mugs := createTestCategory(t, db, "Mugs")
	books := createTestCategory(t, db, "Books")

	cheapMug := createTestProduct(t, db, "Cheap Mug", "5", &mugs.ID)
	fancyMug := createTestProduct(t, db, "Fancy Mug", "40", &mugs.ID)
	createTestProduct(t, db, "Go Book", "30", &books.ID)
	hidden := createTestProduct(t, db, "Retired Mug", "20", &mugs.ID)
	if err := db.DeactivateProduct(ctx, hidden.ID); err != nil {
		t.Fatalf("DeactivateProduct() error = %v", err)
	}

	tests := []struct {
		name    string
		filter  model.ProductFilter
		wantIDs []string
		wantLen int
	}{
		{
			name:    "no filter hides inactive",
			filter:  model.ProductFilter{},
			wantLen: 3,
		},
		{
			name:    "category and price range",
			filter:  model.ProductFilter{CategoryID: mugs.ID, MinPrice: ptr(decimal.NewFromInt(10)), MaxPrice: ptr(decimal.NewFromInt(50))},
			wantIDs: []string{fancyMug.ID},
		},
		{
			name:    "inclusive bounds",
			filter:  model.ProductFilter{MinPrice: ptr(decimal.NewFromInt(5)), MaxPrice: ptr(decimal.NewFromInt(5))},
			wantIDs: []string{cheapMug.ID},
		},
		{
			name:    "search is case-insensitive",
			filter:  model.ProductFilter{Search: "MUG"},
			wantIDs: []string{cheapMug.ID, fancyMug.ID},
		},
		{
			name:    "search treats percent literally",
			filter:  model.ProductFilter{Search: "%"},
			wantLen: 0,
		},
		{
			name:    "admin sees inactive",
			filter:  model.ProductFilter{CategoryID: mugs.ID, IncludeInactive: true},
			wantLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListProducts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListProducts() error = %v", err)
			}
			if tt.wantIDs != nil {
				if len(got) != len(tt.wantIDs) {
					t.Fatalf("got %d products, want %d", len(got), len(tt.wantIDs))
				}
				for i, id := range tt.wantIDs {
					if got[i].ID != id {
						t.Errorf("product[%d] = %s, want %s", i, got[i].Name, id)
					}
				}
				return
			}
			if len(got) != tt.wantLen {
				t.Errorf("got %d products, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestListProducts_SearchFoldsNonASCII(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	eclair := createTestProduct(t, db, "Éclair Box", "9", nil)
	createTestProduct(t, db, "Plain Box", "3", nil)

	for _, search := range []string{"Éclair", "éclair", "ÉCLAIR", "clair b"} {
		got, err := db.ListProducts(ctx, model.ProductFilter{Search: search})
		if err != nil {
			t.Fatalf("ListProducts(%q) error = %v", search, err)
		}
		if len(got) != 1 || got[0].ID != eclair.ID {
			t.Errorf("ListProducts(%q) = %d products, want only %s", search, len(got), eclair.Name)
		}
	}

	// Renaming refreshes the searchable text.
	eclair.Name = "Crème Brûlée"
	eclair.Description = "ÜBER SWEET"
	if err := db.UpdateProduct(ctx, eclair); err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	for search, want := range map[string]int{"CRÈME": 1, "über": 1, "éclair": 0} {
		got, err := db.ListProducts(ctx, model.ProductFilter{Search: search})
		if err != nil {
			t.Fatalf("ListProducts(%q) error = %v", search, err)
		}
		if len(got) != want {
			t.Errorf("after rename, ListProducts(%q) = %d products, want %d", search, len(got), want)
		}
	}
}

func TestNew_FillsSearchTextForExistingProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	// A products table from before search_text existed.
	old, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	_, err = old.Exec(`
		CREATE TABLE products (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			price          NUMERIC NOT NULL CHECK (price >= 0),
			original_price NUMERIC,
			image_url      TEXT NOT NULL DEFAULT '',
			category_id    TEXT REFERENCES categories(id) ON DELETE SET NULL,
			featured       INTEGER NOT NULL DEFAULT 0,
			active         INTEGER NOT NULL DEFAULT 1,
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL
		);
		INSERT INTO products (id, name, price, created_at, updated_at)
		VALUES ('p1', 'Éclair Box', 9, '2026-01-01 00:00:00', '2026-01-01 00:00:00');`)
	if err != nil {
		t.Fatalf("creating old schema: %v", err)
	}
	old.Close()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	got, err := db.ListProducts(context.Background(), model.ProductFilter{Search: "ÉCLAIR"})
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("ListProducts(ÉCLAIR) = %+v, want p1", got)
	}
}

func TestListProducts_FeaturedOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestProduct(t, db, "Plain", "1", nil)
	star := &model.Product{Name: "Star", Price: decimal.NewFromInt(2), Featured: true, Active: true}
	db.CreateProduct(ctx, star)

	got, err := db.ListProducts(ctx, model.ProductFilter{FeaturedOnly: true})
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != star.ID {
		t.Errorf("featured listing = %+v, want only %s", got, star.ID)
	}
}

func TestUpdateProduct(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProduct(t, db, "Lamp", "25", nil)

	p.Name = "Desk lamp"
	p.Price = decimal.RequireFromString("27.99")
	if err := db.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}

	got, _ := db.GetProduct(ctx, p.ID)
	if got.Name != "Desk lamp" || !got.Price.Equal(decimal.RequireFromString("27.99")) {
		t.Errorf("after update: %+v", got)
	}

	missing := &model.Product{ID: "nope", Name: "x"}
	if err := db.UpdateProduct(ctx, missing); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProduct(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeactivateProduct_NotFound(t *testing.T) {
	db := newTestDB(t)
	if err := db.DeactivateProduct(context.Background(), "nope"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeactivateProduct() error = %v, want ErrNotFound", err)
	}
}
