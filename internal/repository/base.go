package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/models"
)

// backend is the driver-specific half of a store.
type backend interface {
	reader() conn
	// inTx runs fn in a transaction and commits if it returns nil. The commit
	// is not bound to ctx.
	inTx(ctx context.Context, fn func(ctx context.Context, c conn) error) error
	settled(ctx context.Context, c conn, projectID uuid.UUID) error
}

// store implements Store on top of a backend.
type store struct {
	b backend
}

func notFound(err error, kind string, id uuid.UUID) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}

func (s store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return getUser(ctx, s.b.reader(), id, false)
}

func (s store) CreateUser(ctx context.Context, u *models.User) error {
	return insertUser(ctx, s.b.reader(), u)
}

func (s store) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return getProject(ctx, s.b.reader(), id, false)
}

func (s store) ListProjects(ctx context.Context, viewer uuid.UUID) ([]*models.Project, error) {
	return listProjects(ctx, s.b.reader(), viewer)
}

func (s store) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	return userHistory(ctx, s.b.reader(), userID, limit)
}

func (s store) ProjectEntries(ctx context.Context, projectID uuid.UUID) ([]models.LedgerEntry, error) {
	return projectEntries(ctx, s.b.reader(), projectID)
}

func (s store) ListWithdrawals(ctx context.Context, status string) ([]models.Withdrawal, error) {
	return listWithdrawals(ctx, s.b.reader(), status)
}

func (s store) WithUsers(ctx context.Context, ids []uuid.UUID, fn MutateFunc) error {
	return s.b.inTx(ctx, func(ctx context.Context, c conn) error {
		users, err := lockUsers(ctx, c, ids)
		if err != nil {
			return err
		}
		return s.run(ctx, c, &Snapshot{Users: users, Hidden: map[uuid.UUID]bool{}}, fn)
	})
}

func (s store) WithProject(ctx context.Context, projectID uuid.UUID, extra []uuid.UUID, fn MutateFunc) error {
	return s.b.inTx(ctx, func(ctx context.Context, c conn) error {
		p, err := getProject(ctx, c, projectID, true)
		if err != nil {
			return err
		}
		users, err := lockUsers(ctx, c, append(p.Participants(), extra...))
		if err != nil {
			return err
		}
		hidden, err := hiddenBy(ctx, c, projectID, users)
		if err != nil {
			return err
		}
		return s.run(ctx, c, &Snapshot{Project: p, Users: users, Hidden: hidden}, fn)
	})
}

func (s store) WithWithdrawal(ctx context.Context, id uuid.UUID, fn MutateFunc) error {
	return s.b.inTx(ctx, func(ctx context.Context, c conn) error {
		w, err := getWithdrawal(ctx, c, id, true)
		if err != nil {
			return err
		}
		users, err := lockUsers(ctx, c, []uuid.UUID{w.UserID})
		if err != nil {
			return err
		}
		return s.run(ctx, c, &Snapshot{Users: users, Hidden: map[uuid.UUID]bool{}, Withdrawal: w}, fn)
	})
}

// run computes the changeset and applies it. Once fn has returned, the write
// is no longer cancellable.
func (s store) run(ctx context.Context, c conn, snap *Snapshot, fn MutateFunc) error {
	cs, err := fn(snap)
	if err != nil || cs == nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	if err := apply(ctx, c, cs); err != nil {
		return err
	}
	if cs.Settled && cs.Project != nil {
		if err := s.b.settled(ctx, c, cs.Project.ID); err != nil {
			return fmt.Errorf("settlement hook: %w", err)
		}
	}
	return nil
}
