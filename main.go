package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TheRealTwizzy/poker-api/internal/docstore"
)

const serviceName = "poker-api"

/* ======================
   Request / Response Types
   ====================== */

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Chips    int64  `json:"chips"`
}

type StoreResponse struct {
	Packages []StorePackage `json:"packages"`
}

type PurchaseRequest struct {
	Username  string `json:"username"`
	PackageID string `json:"package_id"`
}

type PurchaseResponse struct {
	OK    bool    `json:"ok"`
	ID    *string `json:"id"`
	Note  string  `json:"note,omitempty"`
	Error string  `json:"error,omitempty"`
}

type Profile struct {
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	Chips    int64   `json:"chips"`
}

type SettingsPayload struct {
	Sound      bool `json:"sound"`
	Animations bool `json:"animations"`
	Brightness int  `json:"brightness"`
}

type SettingsResponse struct {
	Saved bool `json:"saved"`
	SettingsPayload
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type ValidationErrorResponse struct {
	Detail []FieldError `json:"detail"`
}

/* ======================
   main()
   ====================== */

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("App environment", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Database (optional)
	store := openStore(ctx, cfg, logger)
	defer store.Close()

	// HTTP server
	mux := http.NewServeMux()
	registerRoutes(mux, store)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      newHandler(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore returns nil when no database is configured or reachable; the
// nil store fails every operation and handlers fall back to demo data.
func openStore(ctx context.Context, cfg Config, logger *slog.Logger) *docstore.Store {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set; running without document store")
		return nil
	}

	store, err := docstore.Open(ctx, docstore.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		Timeout:         cfg.StoreTimeout,
	})
	if err != nil {
		logger.Error("document store unavailable; running in demo mode", "error", err)
		return nil
	}
	logger.Info("Connected to document store", "driver", store.Driver())
	return store
}

/* ======================
   Routes
   ====================== */

func registerRoutes(mux *http.ServeMux, store documentStore) {
	mux.HandleFunc("/", rootHandler)
	mux.HandleFunc("/test", diagnosticHandler(store))
	mux.HandleFunc("/leaderboard", leaderboardHandler(store))
	mux.HandleFunc("/store", storeHandler)
	mux.HandleFunc("/purchase", purchaseHandler(store))
	mux.HandleFunc("/profile/", profileHandler(store))
	mux.HandleFunc("/settings", settingsHandler)
}
