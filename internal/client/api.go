package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/model"
)

// Query keys. Invalidating a key also drops the keys nested under it.
const (
	keyUser         = "auth/user"
	keyProducts     = "products"
	keyCategories   = "categories"
	keyCart         = "cart"
	keyOrders       = "orders"
	keyAdminOrders  = "admin/orders"
	keyAdminUsers   = "admin/users"
	keyAdminContact = "admin/contact"
)

const queryRetries = 1

// ProductQuery filters a product listing. Zero values mean "any".
type ProductQuery struct {
	Search          string
	CategoryID      string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	Featured        bool
	IncludeInactive bool
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.CategoryID != "" {
		v.Set("categoryId", q.CategoryID)
	}
	if q.MinPrice != nil {
		v.Set("minPrice", q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		v.Set("maxPrice", q.MaxPrice.String())
	}
	if q.Featured {
		v.Set("featured", "true")
	}
	if q.IncludeInactive {
		v.Set("includeInactive", "true")
	}
	return v
}

// ProductRequest is the body of product create and update.
type ProductRequest struct {
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"originalPrice"`
	ImageURL      string              `json:"imageUrl,omitempty"`
	CategoryID    *string             `json:"categoryId,omitempty"`
	Featured      bool                `json:"featured"`
	Active        *bool               `json:"active,omitempty"`
}

// ContactRequest is a contact form submission.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ---- auth ----

// User returns the logged-in user. Anonymous callers get an *APIError with
// status 401. Never retried.
func (c *Client) User(ctx context.Context) (*model.User, error) {
	return query[*model.User](ctx, c, keyUser, "/api/auth/user", 0)
}

// LoginURL is where a browser should be sent to log in with Google.
func (c *Client) LoginURL() string {
	return c.URL("/api/auth/google")
}

// Logout ends the session and drops every cached read.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.cache.InvalidateAll()
	return err
}

// ---- catalog ----

func (c *Client) Products(ctx context.Context, q ProductQuery) ([]model.Product, error) {
	key, path := keyProducts, "/api/products"
	if enc := q.values().Encode(); enc != "" {
		key += "?" + enc
		path += "?" + enc
	}
	return query[[]model.Product](ctx, c, key, path, queryRetries)
}

func (c *Client) Product(ctx context.Context, id string) (*model.Product, error) {
	esc := url.PathEscape(id)
	return query[*model.Product](ctx, c, keyProducts+"/"+esc, "/api/products/"+esc, queryRetries)
}

func (c *Client) CreateProduct(ctx context.Context, req ProductRequest) (*model.Product, error) {
	var p model.Product
	if _, err := c.do(ctx, http.MethodPost, "/api/products", req, &p); err != nil {
		return nil, err
	}
	c.cache.Invalidate(keyProducts)
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, req ProductRequest) (*model.Product, error) {
	var p model.Product
	if _, err := c.do(ctx, http.MethodPut, "/api/products/"+url.PathEscape(id), req, &p); err != nil {
		return nil, err
	}
	// Carts and orders join live product data.
	c.cache.Invalidate(keyProducts, keyCart)
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	c.cache.Invalidate(keyProducts, keyCart)
	return nil
}

func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	return query[[]model.Category](ctx, c, keyCategories, "/api/categories", queryRetries)
}

func (c *Client) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	var cat model.Category
	body := map[string]string{"name": name, "description": description}
	if _, err := c.do(ctx, http.MethodPost, "/api/categories", body, &cat); err != nil {
		return nil, err
	}
	c.cache.Invalidate(keyCategories)
	return &cat, nil
}

// ---- cart ----

func (c *Client) Cart(ctx context.Context) ([]model.CartItem, error) {
	return query[[]model.CartItem](ctx, c, keyCart, "/api/cart", queryRetries)
}

func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) (*model.CartItem, error) {
	var item model.CartItem
	body := map[string]any{"productId": productID, "quantity": quantity}
	if _, err := c.do(ctx, http.MethodPost, "/api/cart", body, &item); err != nil {
		return nil, err
	}
	c.cache.Invalidate(keyCart)
	return &item, nil
}

// UpdateCartItem sets a line's quantity. A quantity of zero or less removes
// the line and returns a nil item.
func (c *Client) UpdateCartItem(ctx context.Context, itemID string, quantity int) (*model.CartItem, error) {
	var item model.CartItem
	status, err := c.do(ctx, http.MethodPut, "/api/cart/"+url.PathEscape(itemID),
		map[string]int{"quantity": quantity}, &item)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(keyCart)
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &item, nil
}

func (c *Client) RemoveFromCart(ctx context.Context, itemID string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(itemID), nil, nil); err != nil {
		return err
	}
	c.cache.Invalidate(keyCart)
	return nil
}

// ClearCart empties the cart in one request.
func (c *Client) ClearCart(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/cart", nil, nil); err != nil {
		return err
	}
	c.cache.Invalidate(keyCart)
	return nil
}

// ---- orders ----

func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	return query[[]model.Order](ctx, c, keyOrders, "/api/orders", queryRetries)
}

func (c *Client) Order(ctx context.Context, id string) (*model.Order, error) {
	esc := url.PathEscape(id)
	return query[*model.Order](ctx, c, keyOrders+"/"+esc, "/api/orders/"+esc, queryRetries)
}

// Checkout places an order for the whole cart.
func (c *Client) Checkout(ctx context.Context, addr model.ShippingAddress) (*model.Order, error) {
	var o model.Order
	body := map[string]any{"shippingAddress": addr}
	if _, err := c.do(ctx, http.MethodPost, "/api/orders", body, &o); err != nil {
		return nil, err
	}
	c.cache.Invalidate(keyCart, keyOrders, keyAdminOrders)
	return &o, nil
}

// ---- contact ----

func (c *Client) SendContact(ctx context.Context, req ContactRequest) (*model.ContactMessage, error) {
	var m model.ContactMessage
	if _, err := c.do(ctx, http.MethodPost, "/api/contact", req, &m); err != nil {
		return nil, err
	}
	c.cache.Invalidate(keyAdminContact)
	return &m, nil
}

// ---- admin ----

func (c *Client) AdminOrders(ctx context.Context) ([]model.Order, error) {
	return query[[]model.Order](ctx, c, keyAdminOrders, "/api/admin/orders", queryRetries)
}

func (c *Client) AdminUsers(ctx context.Context) ([]model.User, error) {
	return query[[]model.User](ctx, c, keyAdminUsers, "/api/admin/users", queryRetries)
}

func (c *Client) AdminContact(ctx context.Context) ([]model.ContactMessage, error) {
	return query[[]model.ContactMessage](ctx, c, keyAdminContact, "/api/admin/contact", queryRetries)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	var o model.Order
	body := map[string]string{"status": string(status)}
	if _, err := c.do(ctx, http.MethodPut, "/api/admin/orders/"+url.PathEscape(id)+"/status", body, &o); err != nil {
		return nil, err
	}
	c.cache.Invalidate(keyOrders, keyAdminOrders)
	return &o, nil
}

// StatusCode returns the HTTP status of an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
