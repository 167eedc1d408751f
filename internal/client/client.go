// Package client is a Go client for the storefront API with a query cache.
//
// It plays the role of the browser's data layer: the session cookie is the
// only credential and lives in a cookie jar; reads go through a cache with a
// five minute stale time; writes invalidate the cached reads they affect.
//
// RETRIES:
// Reads are retried once on a network error or a 5xx. The identity read
// (User) is not retried, so "logged out" shows up immediately. Writes are
// never retried: a timed-out checkout may have succeeded.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// ErrNetwork is matched by errors.Is for every transport failure.
var ErrNetwork = errors.New("Network error")

// APIError is a non-2xx response. Message is the server's "message" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// networkError reports "Network error" and keeps the cause for errors.As.
type networkError struct {
	cause error
}

func (e *networkError) Error() string        { return ErrNetwork.Error() }
func (e *networkError) Unwrap() error        { return e.cause }
func (e *networkError) Is(target error) bool { return target == ErrNetwork }

// Client talks to one storefront server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cache   *Cache
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Jar is replaced with a fresh
// cookie jar when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache replaces the query cache, e.g. one with a fake clock.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// New returns a client for the server at baseURL ("http://localhost:8080").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base URL must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   NewCache(DefaultStaleTime),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: creating cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Cache exposes the query cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Cookie returns the value of the named cookie for the server, or "".
func (c *Client) Cookie(name string) string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// SetCookie stores a cookie for the server, e.g. a session restored from
// disk. It also drops every cached read, since they belonged to whoever the
// previous cookie identified.
func (c *Client) SetCookie(name, value string) {
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
	c.cache.InvalidateAll()
}

// URL resolves an API path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + path
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded
// when non-nil and the response has a body. It returns the status code.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("client: encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return 0, fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &networkError{cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &networkError{cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, parseAPIError(resp.StatusCode, raw)
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("client: decoding %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func parseAPIError(status int, raw []byte) *APIError {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = "An error occurred"
	}
	return &APIError{Status: status, Message: body.Message}
}

// retryable reports whether a failed read may be tried again.
func retryable(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 500
}

// query serves key from the cache or fetches it with GET path, retrying
// up to retries times.
//
// The cache holds the response body, not the decoded value, so every call
// returns its own copy and a caller mutating a result cannot change what
// later readers see.
func query[T any](ctx context.Context, c *Client, key, path string, retries int) (T, error) {
	var out T
	if v, ok := c.cache.Get(key); ok {
		if raw, ok := v.([]byte); ok && json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}

	var (
		raw json.RawMessage
		err error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		raw = nil
		if _, err = c.do(ctx, http.MethodGet, path, nil, &raw); err == nil {
			break
		}
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		var zero T
		return zero, err
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("client: decoding GET %s: %w", path, err)
		}
	}
	c.cache.Set(key, []byte(raw))
	return out, nil
}
