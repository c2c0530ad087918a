// Package blogapi serves a read-only blog corpus over a JSON HTTP API built
// with Echo: paginated and sortable listing, case-insensitive substring
// search, corpus statistics and single-document lookups.
//
// The query layer (Service) depends only on the Store interface, so the
// SQLite store used in production can be swapped for a MemoryStore.
package blogapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// App wires together the store, cache, service, middleware and routes.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Service *Service
	Logger  *zap.Logger

	store        Store
	cache        Cache
	limiter      *RateLimiter
	metrics      *metrics
	closers      []io.Closer
	customRoutes []func(*App)
	initialized  bool
}

// New creates an App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Logger: zap.NewNop(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and cache unless they were injected, then sets up
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}

	if a.store == nil {
		store, err := NewSQLiteStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("blogapi: open store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store)
	}

	if a.cache == nil {
		switch a.Config.Cache.Backend {
		case CacheMemory:
			a.cache = NewMemoryCache()
		case CacheRedis:
			client, err := NewRedisClient(ctx, a.Config.Cache.RedisAddr, a.Config.Cache.RedisPassword, a.Config.Cache.RedisDB)
			if err != nil {
				return fmt.Errorf("blogapi: connect redis: %w", err)
			}
			a.cache = NewRedisCache(client, a.Config.Cache.KeyPrefix)
			a.closers = append(a.closers, client)
		}
	}

	a.Service = NewService(a.store, a.cache, a.Config.Cache.TTL, a.Logger)
	a.metrics = newMetrics()

	if !a.Config.RateLimit.Disabled {
		a.limiter = NewRateLimiter(a.Config.RateLimit.RPS, a.Config.RateLimit.Burst, 3*time.Minute)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.initialized = true
	return nil
}

// Start initializes the App and serves HTTP until ctx is canceled, then
// shuts down gracefully within Config.ShutdownTimeout.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", zap.String("addr", a.Config.Addr))
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down", zap.Duration("timeout", a.Config.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("blogapi: shutdown: %w", err)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/api", a.handleCatalog)
	api := e.Group("/api")
	api.GET("/blogs", a.handleListBlogs)
	api.GET("/blogs/search/:query", a.handleSearchBlogs)
	api.GET("/blogs/title/:title", a.handleBlogByTitle)
	api.GET("/blogs/:id", a.handleBlog)
	api.GET("/stats", a.handleStats)
	api.GET("/titles", a.handleTitles)

	e.GET("/health", a.handleHealth)
	e.GET("/metrics", a.metrics.handler())
}

// Close releases the resources the App opened. Injected stores and caches
// are left to their owners.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
