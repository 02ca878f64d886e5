// Storefront server - catalog browsing, recommendations, carts and
// wishlists over REST and MCP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/adapter"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/order"
	"storefront/internal/persist"
	"storefront/internal/recommend"
	"storefront/internal/remote"
	"storefront/internal/review"
	"storefront/internal/session"
	"storefront/internal/storefront"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("catalog_backend", cfg.Catalog.Backend),
		slog.String("persist_backend", cfg.Persist.Backend),
	)

	backend, err := createBackend(cfg)
	if err != nil {
		return fmt.Errorf("creating catalog backend: %w", err)
	}

	store, closeStore, err := createStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating ledger store: %w", err)
	}
	defer closeStore()

	engineOpts := []recommend.Option{recommend.WithLogger(logger)}
	if cfg.RecommendSeed != 0 {
		engineOpts = append(engineOpts, recommend.WithSeed(cfg.RecommendSeed))
	}

	svc := storefront.New(storefront.Deps{
		Products:   backend,
		Orders:     backend,
		Reviews:    backend,
		Store:      store,
		Engine:     recommend.New(backend, engineOpts...),
		Calculator: cfg.Calculator(),
		Logger:     logger,

		LedgerCacheSize: cfg.LedgerCacheSize,
	})

	h := handler.New(svc, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → session → logging → handler
	// Recovery must be outermost to catch panics from the other middleware.
	// Logging runs inside the session middleware so it can log the shopper.
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		session.Middleware(logger),
		middleware.Logging(logger),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// createBackend creates the product, order and review backend based on configuration.
func createBackend(cfg *config.Config) (adapter.Backend, error) {
	switch cfg.Catalog.Backend {
	case config.BackendMemory:
		products, err := catalog.LoadFile(cfg.Catalog.Fixture)
		if err != nil {
			return nil, err
		}
		// Fixture catalogs keep orders and reviews in process
		return adapter.Compose(products, order.NewMemory(), review.NewMemory(nil)), nil
	case config.BackendRemote:
		return remote.New(remote.Config{
			BaseURL:     cfg.Remote.URL,
			APIKey:      cfg.Remote.APIKey,
			Timeout:     cfg.Remote.Timeout,
			Fingerprint: cfg.Remote.Fingerprint,
		})
	default:
		return nil, fmt.Errorf("unsupported catalog backend: %s", cfg.Catalog.Backend)
	}
}

// createStore opens the cart and wishlist store. The returned func
// releases it.
func createStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (persist.Store, func(), error) {
	switch cfg.Persist.Backend {
	case config.BackendMemory:
		return persist.NewMemory(), func() {}, nil
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		pg, err := persist.OpenPostgres(ctx, cfg.Persist.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info("ledger tables ready")
		return pg, func() {
			if err := pg.Close(); err != nil {
				logger.Warn("closing database", slog.String("error", err.Error()))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported persist backend: %s", cfg.Persist.Backend)
	}
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
