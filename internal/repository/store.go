// Package repository persists users, projects, votes, hidden-project keys,
// withdrawals and points history. Store has a Postgres implementation, a local
// SQLite one, and the Fallback decorator that routes between them.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// ErrUnavailable means the store could not be reached and nothing was
	// written. It is the only error Fallback reroutes.
	ErrUnavailable = errors.New("store unavailable")
)

// Snapshot is the locked state a MutateFunc reads. Users holds every row
// locked for the call; Hidden marks which of them have hidden the project.
type Snapshot struct {
	Project    *models.Project
	Users      map[uuid.UUID]models.User
	Hidden     map[uuid.UUID]bool
	Withdrawal *models.Withdrawal
}

// CreatorHidden reports whether the project's creator has hidden it.
func (s *Snapshot) CreatorHidden() bool {
	return s.Project != nil && s.Hidden[s.Project.CreatorID]
}

// Changeset is applied in the transaction that produced the Snapshot.
// Users carry absolute balances, not deltas.
type Changeset struct {
	// NewUser is inserted before anything else, so Entries may reference it.
	NewUser       *models.User
	NewProject    *models.Project
	Project       *models.Project
	NewVotes      []models.VoteDetail
	Users         []models.User
	Entries       []models.LedgerEntry
	Hide          []models.HiddenKey
	NewWithdrawal *models.Withdrawal
	Withdrawal    *models.Withdrawal

	// Settled runs the store's settlement hook for Project in the same transaction.
	Settled bool
}

// MutateFunc computes a Changeset from a locked Snapshot. A nil Changeset
// commits nothing; an error rolls the transaction back and is returned as is.
type MutateFunc func(s *Snapshot) (*Changeset, error)

type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// ListProjects returns every project not hidden by viewer, newest first.
	ListProjects(ctx context.Context, viewer uuid.UUID) ([]*models.Project, error)
	// History returns a user's entries, newest first. limit <= 0 means all.
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error)
	ProjectEntries(ctx context.Context, projectID uuid.UUID) ([]models.LedgerEntry, error)
	ListWithdrawals(ctx context.Context, status string) ([]models.Withdrawal, error)

	// WithUsers locks the given users.
	WithUsers(ctx context.Context, ids []uuid.UUID, fn MutateFunc) error
	// WithProject locks the project, its creator, every voter and extra.
	WithProject(ctx context.Context, projectID uuid.UUID, extra []uuid.UUID, fn MutateFunc) error
	// WithWithdrawal locks the request and its owner.
	WithWithdrawal(ctx context.Context, id uuid.UUID, fn MutateFunc) error
}
