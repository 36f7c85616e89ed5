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

	"github.com/rs/cors"

	"github.com/pivote/backend/internal/auth"
	"github.com/pivote/backend/internal/bootstrap"
	"github.com/pivote/backend/internal/config"
	"github.com/pivote/backend/internal/handlers"
	"github.com/pivote/backend/internal/observability/metrics"
	"github.com/pivote/backend/internal/router"
	"github.com/pivote/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.InsecureSecret() {
		slog.Warn("JWT_SECRET not set, using the development secret")
	}
	if cfg.AdminKeyHash == "" {
		slog.Warn("ADMIN_KEY_HASH not set, admin routes are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		slog.Error("Failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	if stores.River != nil {
		go func() {
			if err := stores.River.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("River client stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsPort); err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	svc := services.NewProjectService(stores.Store, logger, services.WithSettleConcurrency(cfg.SettleConcurrency))
	validator, err := services.NewValidator()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}
	tokens := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)

	api := router.New(router.Config{
		Projects:     &handlers.ProjectHandler{Projects: svc, Validator: validator, Logger: logger},
		Accounts:     &handlers.AccountHandler{Accounts: svc, Tokens: tokens, Validator: validator, Logger: logger},
		Tokens:       tokens,
		AdminKeyHash: []byte(cfg.AdminKeyHash),
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Key"},
		AllowCredentials: true,
	}).Handler(api)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown", "error", err)
		}
		if stores.River != nil {
			if err := stores.River.Stop(shutdownCtx); err != nil {
				slog.Error("River stop", "error", err)
			}
		}
	}()

	slog.Info("Starting HTTP server", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("Server stopped")
}
