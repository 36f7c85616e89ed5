package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/pivote/backend/internal/config"
	"github.com/pivote/backend/internal/execution"
	"github.com/pivote/backend/internal/repository"
)

// Stores holds everything a process needs to read and move points.
// Store is the Postgres primary behind the SQLite fallback, or SQLite alone
// when Postgres could not be reached at startup.
type Stores struct {
	Store   repository.Store
	Local   *repository.SQLite
	Primary *repository.Postgres
	Pool    *pgxpool.Pool
	River   *river.Client[pgx.Tx]
}

// Open connects both stores, applies migrations and builds the River client.
// The River client is not started; callers that process jobs call Start.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	local, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	logger.Info("Local SQLite store ready", "path", cfg.SQLitePath)

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("PostgreSQL unreachable, running on the local store only", "error", err)
		return &Stores{Store: local, Local: local}, nil
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		local.Close()
		return nil, err
	}
	logger.Info("Migrations applied")

	// The settle hook inserts through the River client, whose worker reads
	// through the store. The insert func is bound once the client exists.
	var insertMu sync.Mutex
	var insertFn repository.SettledTxFunc
	onSettled := func(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			return errors.New("river insert not wired")
		}
		return fn(ctx, tx, projectID)
	}
	primary := repository.NewPostgres(pool, onSettled)

	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewSettlementAuditWorker(primary, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.RiverWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		local.Close()
		return nil, fmt.Errorf("create river client: %w", err)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) error {
		_, err := riverClient.InsertTx(ctx, tx, execution.SettlementAuditArgs{ProjectID: projectID}, nil)
		return err
	}
	insertMu.Unlock()

	return &Stores{
		Store:   repository.NewFallback(primary, local, logger),
		Local:   local,
		Primary: primary,
		Pool:    pool,
		River:   riverClient,
	}, nil
}

// Close releases the pool and the local database.
func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.Local != nil {
		s.Local.Close()
	}
}

func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	err = retry.Do(
		func() error { return pool.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("PostgreSQL ping failed", "attempt", n+1, "max_attempts", cfg.ConnectAttempts, "error", err)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Connected to PostgreSQL")
	return pool, nil
}

// Migrate applies River's and the application's migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if err := repository.NewPostgres(pool, nil).Migrate(ctx); err != nil {
		return err
	}
	return nil
}
