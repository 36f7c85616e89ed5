package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pivote/backend/internal/ledger"
)

// SettledTxFunc runs inside the transaction that settles projectID, after the
// changeset has been written.
type SettledTxFunc func(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) error

// Postgres is the primary Store. Row locks are taken with SELECT ... FOR UPDATE.
type Postgres struct {
	store
	pool      *pgxpool.Pool
	onSettled SettledTxFunc
}

var _ Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool, onSettled SettledTxFunc) *Postgres {
	p := &Postgres{pool: pool, onSettled: onSettled}
	p.store = store{b: p}
	return p
}

// Migrate creates the schema. Statements are idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) reader() conn {
	return pgConn{q: p.pool}
}

func (p *Postgres) inTx(ctx context.Context, fn func(ctx context.Context, c conn) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return pgConn{}.translate(err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))
	if err := fn(ctx, pgConn{q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) settled(ctx context.Context, c conn, projectID uuid.UUID) error {
	if p.onSettled == nil {
		return nil
	}
	pc, ok := c.(pgConn)
	if !ok || pc.tx == nil {
		return errors.New("settlement hook needs a transaction")
	}
	return p.onSettled(ctx, pc.tx, projectID)
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgConn struct {
	q  pgQuerier
	tx pgx.Tx
}

func (c pgConn) exec(ctx context.Context, q string, args ...any) (int64, error) {
	tag, err := c.q.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c pgConn) queryRow(ctx context.Context, q string, args ...any) row {
	return c.q.QueryRow(ctx, q, args...)
}

func (c pgConn) query(ctx context.Context, q string, args ...any) (rows, error) {
	rs, err := c.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (pgConn) lockClause() string { return " FOR UPDATE" }

func (pgConn) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23514":
			return fmt.Errorf("%w: %s", ledger.ErrInvariant, pgErr.ConstraintName)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
