package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pivote/backend/internal/ledger"
)

// SQLite is the local Store. One connection serializes every transaction,
// which stands in for row locks.
type SQLite struct {
	store
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	s.store = store{b: s}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) reader() conn {
	return sqlConn{q: s.db}
}

func (s *SQLite) inTx(ctx context.Context, fn func(ctx context.Context, c conn) error) error {
	// database/sql rolls a transaction back when its context ends.
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()
	if err := fn(ctx, sqlConn{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// settled checks conservation inline; there is no job queue next to SQLite.
func (s *SQLite) settled(ctx context.Context, c conn, projectID uuid.UUID) error {
	entries, err := projectEntries(ctx, c, projectID)
	if err != nil {
		return err
	}
	if net := ledger.Net(entries); net != 0 {
		return fmt.Errorf("%w: project %s settles with net %d", ledger.ErrInvariant, projectID, net)
	}
	return nil
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlConn struct {
	q sqlQuerier
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// rebind turns $n into SQLite's numbered ?n form.
func rebind(q string) string {
	return placeholder.ReplaceAllString(q, "?$1")
}

func (c sqlConn) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := c.q.ExecContext(ctx, rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c sqlConn) queryRow(ctx context.Context, q string, args ...any) row {
	return c.q.QueryRowContext(ctx, rebind(q), args...)
}

func (c sqlConn) query(ctx context.Context, q string, args ...any) (rows, error) {
	rs, err := c.q.QueryContext(ctx, rebind(q), args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rs}, nil
}

func (sqlConn) lockClause() string { return "" }

func (sqlConn) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	msg := se.Error()
	switch {
	case se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE, se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		strings.Contains(msg, "UNIQUE constraint"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case se.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK, strings.Contains(msg, "CHECK constraint"):
		return fmt.Errorf("%w: %v", ledger.ErrInvariant, err)
	}
	return err
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { r.Rows.Close() }
