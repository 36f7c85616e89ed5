package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pivote/backend/internal/auth"
	"github.com/pivote/backend/internal/bootstrap"
	"github.com/pivote/backend/internal/config"
	"github.com/pivote/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&env{
		open: func(ctx context.Context) (adminService, func(), error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, nil, err
			}
			stores, err := bootstrap.Open(ctx, cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			svc := services.NewProjectService(stores.Store, logger, services.WithSettleConcurrency(cfg.SettleConcurrency))
			return svc, stores.Close, nil
		},
		migrate: func(ctx context.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			return bootstrap.Migrate(ctx, pool)
		},
		issuer: func() (tokenIssuer, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return auth.NewService(cfg.JWTSecret, cfg.TokenTTL), nil
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
