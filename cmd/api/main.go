// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookhaven/internal/auth"
	"bookhaven/internal/catalog"
	"bookhaven/internal/config"
	"bookhaven/internal/httpx"
	"bookhaven/internal/orders"
	"bookhaven/internal/postgres"
	"bookhaven/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db.DB); err != nil {
		return err
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	search := catalog.NewSearchIndex(cfg.MeiliHost, cfg.MeiliAPIKey)

	authService := auth.NewService(db, tokens)
	catalogService := catalog.NewService(db, search)
	orderService, err := orders.NewService(db)
	if err != nil {
		return err
	}

	router := httpx.NewRouter(cfg.RequestTimeout)
	auth.NewHandler(authService, tokens).Mount(router)
	catalog.NewHandler(catalogService).Mount(router, auth.RequireAuth(tokens))
	orders.NewHandler(orderService).Mount(router, auth.RequireAuth(tokens))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
