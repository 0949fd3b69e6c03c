// Package devserver is a self-contained CRM backend implementing the HTTP
// contract the client speaks. It backs local development, demos and the
// end-to-end tests.
package devserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

//go:embed views.yaml
var viewsYAML []byte

// Server serves the CRM API over a SQLite store.
type Server struct {
	store  *Store
	tokens *tokenIssuer
	views  map[string][]core.ViewConfig
	port   int
	logger *slog.Logger
}

// Config holds configuration for the dev server.
type Config struct {
	Port          int
	DatabasePath  string
	JWTSecret     string
	SeedCompanies int
	TokenTTL      time.Duration
	Logger        *slog.Logger
}

// New opens the store, seeds it on first use and loads the view catalog.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = ":memory:"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	views, err := loadViews()
	if err != nil {
		return nil, err
	}
	fixtures, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Seed(ctx, fixtures, cfg.SeedCompanies); err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Server{
		store:  store,
		tokens: &tokenIssuer{secret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL, now: time.Now},
		views:  views,
		port:   cfg.Port,
		logger: logger,
	}, nil
}

// Views returns the built-in view catalog keyed by entity type.
func Views() (map[string][]core.ViewConfig, error) {
	return loadViews()
}

func loadViews() (map[string][]core.ViewConfig, error) {
	var views map[string][]core.ViewConfig
	if err := yaml.Unmarshal(viewsYAML, &views); err != nil {
		return nil, fmt.Errorf("failed to parse views: %w", err)
	}
	for entityType := range views {
		if _, err := lookupEntity(entityType); err != nil {
			return nil, fmt.Errorf("views: %w", err)
		}
	}
	return views, nil
}

// Store exposes the underlying store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the API router mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", s.handleLogin)
		api.Post("/auth/register", s.handleRegister)

		api.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/users/me", s.handleMe)
			r.Get("/entities/{entityType}/views", s.handleViews)
			r.Post("/entities/query", s.handleQuery)
			r.Get("/picklists/{entityType}", s.handlePicklist)
			r.Post("/picklists/search", s.handlePicklistSearch)
			s.mountResources(r)
		})
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting dev server", "addr", fmt.Sprintf("http://localhost:%d/api", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Compress(5),
	)
	r.Mount("/", s.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dev server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}
