package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/service"
)

// CatalogHandler serves products and categories.
//
// Reads are public. Writes are mounted behind Gate.RequireAdmin, so the
// handlers themselves never check roles; the one exception is
// includeInactive on reads, which is silently ignored for non-admins.
type CatalogHandler struct {
	catalog *service.CatalogService
	users   *service.AuthService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, users *service.AuthService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, users: users, logger: logger}
}

// productRequest is the JSON body of POST and PUT /api/products.
// Prices are JSON numbers; decimal.Decimal also accepts quoted strings.
type productRequest struct {
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         *decimal.Decimal    `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"originalPrice"`
	ImageURL      string              `json:"imageUrl"`
	CategoryID    *string             `json:"categoryId"`
	Featured      bool                `json:"featured"`
	Active        *bool               `json:"active"`
}

func (p productRequest) input() (service.ProductInput, error) {
	if p.Price == nil {
		return service.ProductInput{}, apperror.ValidationFailed("price", "price is required")
	}
	return service.ProductInput{
		Name:          p.Name,
		Description:   p.Description,
		Price:         *p.Price,
		OriginalPrice: p.OriginalPrice,
		ImageURL:      p.ImageURL,
		CategoryID:    p.CategoryID,
		Featured:      p.Featured,
		Active:        p.Active,
	}, nil
}

// HandleListProducts lists the catalog.
//
// HTTP: GET /api/products?search=&categoryId=&minPrice=&maxPrice=&featured=true
func (h *CatalogHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	filter.IncludeInactive = filter.IncludeInactive && h.isAdmin(r)

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// HandleGetProduct returns one product. Inactive products are 404 unless the
// caller is an admin.
//
// HTTP: GET /api/products/{id}
func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.catalog.GetProduct(r.Context(), id, h.isAdmin(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCreateProduct creates a product.
//
// HTTP: POST /api/products (admin)
func (h *CatalogHandler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleUpdateProduct replaces a product's writable fields.
//
// HTTP: PUT /api/products/{id} (admin)
func (h *CatalogHandler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDeleteProduct hides a product from the catalog.
//
// HTTP: DELETE /api/products/{id} (admin)
func (h *CatalogHandler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListCategories lists all categories by name.
//
// HTTP: GET /api/categories
func (h *CatalogHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleCreateCategory creates a category; a duplicate name is 409.
//
// HTTP: POST /api/categories (admin)
func (h *CatalogHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.catalog.CreateCategory(r.Context(), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// isAdmin reports whether the request comes from a logged-in admin. Lookup
// failures count as "no".
func (h *CatalogHandler) isAdmin(r *http.Request) bool {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok || !id.Authenticated() {
		return false
	}
	user, err := h.users.GetUser(r.Context(), id.UserID)
	return err == nil && user.IsAdmin
}

// parseProductFilter reads the listing query parameters. Unparseable numbers
// are validation errors rather than being ignored.
func parseProductFilter(r *http.Request) (model.ProductFilter, error) {
	q := r.URL.Query()
	f := model.ProductFilter{
		Search:     q.Get("search"),
		CategoryID: q.Get("categoryId"),
	}

	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
	} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, apperror.ValidationFailed(p.name, p.name+" must be a number")
		}
		*p.dst = &d
	}

	for _, p := range []struct {
		name string
		dst  *bool
	}{
		{"featured", &f.FeaturedOnly},
		{"includeInactive", &f.IncludeInactive},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, apperror.ValidationFailed(p.name, p.name+" must be true or false")
		}
		*p.dst = b
	}
	return f, nil
}
