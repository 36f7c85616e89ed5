package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/observability/metrics"
)

// Fallback sends every call to the primary store and repeats it on the
// secondary when the primary returns ErrUnavailable. Any other error,
// including domain rejections, is returned unchanged. A MutateFunc may run
// once per store.
type Fallback struct {
	primary   Store
	secondary Store
	logger    *slog.Logger
}

var _ Store = (*Fallback)(nil)

func NewFallback(primary, secondary Store, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func call[T any](f *Fallback, op string, fn func(Store) (T, error)) (T, error) {
	v, err := fn(f.primary)
	if !errors.Is(err, ErrUnavailable) {
		return v, err
	}
	f.logger.Warn("Primary store unavailable, using local store", "op", op, "error", err)
	metrics.RecordStoreFallback(op)
	return fn(f.secondary)
}

func callErr(f *Fallback, op string, fn func(Store) error) error {
	_, err := call(f, op, func(s Store) (struct{}, error) { return struct{}{}, fn(s) })
	return err
}

func (f *Fallback) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return call(f, "get_user", func(s Store) (*models.User, error) { return s.GetUser(ctx, id) })
}

func (f *Fallback) CreateUser(ctx context.Context, u *models.User) error {
	return callErr(f, "create_user", func(s Store) error { return s.CreateUser(ctx, u) })
}

func (f *Fallback) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return call(f, "get_project", func(s Store) (*models.Project, error) { return s.GetProject(ctx, id) })
}

func (f *Fallback) ListProjects(ctx context.Context, viewer uuid.UUID) ([]*models.Project, error) {
	return call(f, "list_projects", func(s Store) ([]*models.Project, error) { return s.ListProjects(ctx, viewer) })
}

func (f *Fallback) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	return call(f, "history", func(s Store) ([]models.LedgerEntry, error) { return s.History(ctx, userID, limit) })
}

func (f *Fallback) ProjectEntries(ctx context.Context, projectID uuid.UUID) ([]models.LedgerEntry, error) {
	return call(f, "project_entries", func(s Store) ([]models.LedgerEntry, error) { return s.ProjectEntries(ctx, projectID) })
}

func (f *Fallback) ListWithdrawals(ctx context.Context, status string) ([]models.Withdrawal, error) {
	return call(f, "list_withdrawals", func(s Store) ([]models.Withdrawal, error) { return s.ListWithdrawals(ctx, status) })
}

func (f *Fallback) WithUsers(ctx context.Context, ids []uuid.UUID, fn MutateFunc) error {
	return callErr(f, "with_users", func(s Store) error { return s.WithUsers(ctx, ids, fn) })
}

func (f *Fallback) WithProject(ctx context.Context, projectID uuid.UUID, extra []uuid.UUID, fn MutateFunc) error {
	return callErr(f, "with_project", func(s Store) error { return s.WithProject(ctx, projectID, extra, fn) })
}

func (f *Fallback) WithWithdrawal(ctx context.Context, id uuid.UUID, fn MutateFunc) error {
	return callErr(f, "with_withdrawal", func(s Store) error { return s.WithWithdrawal(ctx, id, fn) })
}
