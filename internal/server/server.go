// Package server wires the storefront together and runs the HTTP server.
//
// This is the composition root: configuration goes in, and every store,
// service, handler and middleware is built and connected here. Nothing
// below this package knows how its dependencies are constructed.
//
// DEPENDENCY CHAIN:
//
//	config → sqlite.DB ─┬─→ services → handlers → routes
//	                    └─→ session store → auth.Manager → auth.Gate
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/config"
	"github.com/sakif/storefront/internal/handler"
	"github.com/sakif/storefront/internal/metrics"
	"github.com/sakif/storefront/internal/middleware"
	sqliteRepo "github.com/sakif/storefront/internal/repository/sqlite"
	"github.com/sakif/storefront/internal/service"
	"github.com/sakif/storefront/internal/session"
)

const (
	shutdownTimeout   = 30 * time.Second
	sessionPruneEvery = 15 * time.Minute
	limiterSweepEvery = 5 * time.Minute
)

// Option customises a Server. Tests use it to swap the identity provider.
type Option func(*options)

type options struct {
	provider auth.IdentityProvider
}

// WithIdentityProvider replaces the Google provider built from config.
func WithIdentityProvider(p auth.IdentityProvider) Option {
	return func(o *options) { o.provider = p }
}

// Server owns the router and every long-lived resource: the database, the
// session store, the pruning goroutines and the rate limiters. Close
// releases all of them.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics

	cancel  context.CancelFunc // stops background goroutines
	closers []func() error     // run in reverse order by Close
}

// New builds a Server from cfg. The caller must call Close (Start does it on
// return).
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
		cancel:  cancel,
		closers: []func() error{db.Close},
	}

	store, err := s.openSessionStore(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	if o.provider == nil {
		o.provider = auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.GoogleCallbackURL,
			AuthURL:      cfg.GoogleAuthURL,
			TokenURL:     cfg.GoogleTokenURL,
			UserInfoURL:  cfg.GoogleUserInfoURL,
		})
	}

	if err := s.setupRoutes(store, o.provider); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// openSessionStore builds the configured session backend and starts pruning
// expired entries.
func (s *Server) openSessionStore(ctx context.Context) (session.Store, error) {
	switch s.config.SessionStore {
	case config.SessionStoreMemory:
		store := session.NewMemoryStore()
		store.StartPruning(sessionPruneEvery, s.logger)
		s.closers = append(s.closers, store.Close)
		return store, nil

	case config.SessionStoreSQLite:
		store := s.db.Sessions()
		go session.Prune(ctx, store, sessionPruneEvery, s.logger)
		return store, nil

	case config.SessionStorePostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := session.OpenPostgres(connectCtx, s.config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		go session.Prune(ctx, store, sessionPruneEvery, s.logger)
		return store, nil
	}
	return nil, fmt.Errorf("unknown session store %q", s.config.SessionStore)
}

// setupRoutes configures middleware and routes.
//
// MIDDLEWARE ORDER:
//  1. RequestID: tags each request for the logs
//  2. RealIP, only with TRUST_PROXY: client IP from proxy headers, used by
//     the rate limiters
//  3. Logger, then Recoverer so panics are logged as 500s
//  4. Metrics
//  5. Gate.Identify: resolves the session cookie into an Identity
//
// Under /api every body-carrying write must be application/json. The
// Require* gates are attached per route group below. /metrics is not on this
// router; see MetricsHandler.
func (s *Server) setupRoutes(store session.Store, provider auth.IdentityProvider) error {
	tokens, err := auth.NewTokenService(s.config.SessionSecret, s.config.SessionTTL)
	if err != nil {
		return err
	}
	sessions := auth.NewManager(store, tokens, auth.CookieOptions{
		Secure:   s.config.CookieSecure,
		SameSite: s.config.CookieSameSite,
	})
	gate := auth.NewGate(sessions, s.db, s.logger)

	// === Services ===
	authService := service.NewAuthService(s.db, s.config.AdminEmails, s.metrics, s.logger)
	catalogService := service.NewCatalogService(s.db, s.logger)
	cartService := service.NewCartService(s.db, s.metrics, s.logger)
	orderService := service.NewOrderService(s.db, s.metrics, s.logger)
	contactService := service.NewContactService(s.db, s.metrics, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(provider, sessions, authService, handler.AuthRedirects{
		PostLogin: s.config.PostLoginURL,
		Failure:   s.config.FailureURL,
	}, s.config.CookieSecure, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, authService, s.logger)
	cartHandler := handler.NewCartHandler(cartService, s.logger)
	orderHandler := handler.NewOrderHandler(orderService, s.logger)
	contactHandler := handler.NewContactHandler(contactService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	loginLimiter := s.newLimiter(s.config.LoginRatePerMinute)
	contactLimiter := s.newLimiter(s.config.ContactRatePerMinute)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	if s.config.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(s.metrics.InstrumentHandler)
	s.router.Use(gate.Identify)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		// Auth
		r.Get("/auth/user", authHandler.HandleUser)
		r.With(loginLimiter.Handler).Get("/auth/google", authHandler.HandleLogin)
		r.Get("/auth/google/callback", authHandler.HandleCallback)
		r.Get("/auth/logout", authHandler.HandleLogout)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Catalog: public reads, admin writes
		r.Get("/products", catalogHandler.HandleListProducts)
		r.Get("/products/{id}", catalogHandler.HandleGetProduct)
		r.Get("/categories", catalogHandler.HandleListCategories)
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAdmin)
			r.Post("/products", catalogHandler.HandleCreateProduct)
			r.Put("/products/{id}", catalogHandler.HandleUpdateProduct)
			r.Delete("/products/{id}", catalogHandler.HandleDeleteProduct)
			r.Post("/categories", catalogHandler.HandleCreateCategory)
		})

		// Cart and orders belong to the session's owner
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireSession)

			r.Get("/cart", cartHandler.HandleGet)
			r.Post("/cart", cartHandler.HandleAdd)
			r.Delete("/cart", cartHandler.HandleClear)
			r.Put("/cart/{id}", cartHandler.HandleUpdate)
			r.Delete("/cart/{id}", cartHandler.HandleRemove)

			r.Get("/orders", orderHandler.HandleList)
			r.Post("/orders", orderHandler.HandleCheckout)
			r.Get("/orders/{id}", orderHandler.HandleGet)
		})

		r.With(contactLimiter.Handler).Post("/contact", contactHandler.HandleSubmit)

		r.Route("/admin", func(r chi.Router) {
			r.Use(gate.RequireAdmin)
			r.Get("/orders", orderHandler.HandleListAll)
			r.Put("/orders/{id}/status", orderHandler.HandleUpdateStatus)
			r.Get("/users", authHandler.HandleListUsers)
			r.Get("/contact", contactHandler.HandleList)
		})
	})

	return nil
}

func (s *Server) newLimiter(perMinute float64) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(perMinute, s.config.RateBurst, s.logger)
	rl.StartCleanup(limiterSweepEvery)
	s.closers = append(s.closers, func() error { rl.Close(); return nil })
	return rl
}

// Handler returns the root handler. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler serves the Prometheus exposition. Start mounts it on its
// own listener (METRICS_PORT) so revenue and order counts stay off the
// public port.
func (s *Server) MetricsHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Close stops background work and releases resources in reverse order of
// acquisition: limiters, then session store, then the database.
func (s *Server) Close() error {
	s.cancel()

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the server's resources.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 2)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.String("sessionStore", s.config.SessionStore),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var metricsSrv *http.Server
	if s.config.MetricsPort != 0 {
		metricsSrv = &http.Server{
			Addr:        fmt.Sprintf(":%d", s.config.MetricsPort),
			Handler:     s.MetricsHandler(),
			ReadTimeout: 5 * time.Second,
		}
		go func() {
			s.logger.Info("metrics listener starting", slog.Int("port", s.config.MetricsPort))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrors <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
		defer metricsSrv.Close()
	}

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
