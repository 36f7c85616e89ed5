package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/observability/metrics"
	"github.com/pivote/backend/internal/repository"
)

// CreateUser registers a user. Initial points are granted through the ledger
// so they show up in history; the row and the grant commit together.
func (s *ProjectService) CreateUser(ctx context.Context, username string, initialPoints int64) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if initialPoints < 0 {
		return nil, fmt.Errorf("%w: initial points must not be negative", ErrValidation)
	}
	now := s.now()
	var created models.User
	err := s.store.WithUsers(ctx, nil, func(*repository.Snapshot) (*repository.Changeset, error) {
		l := s.open(models.User{ID: uuid.New(), Username: username, CreatedAt: now, UpdatedAt: now}, nil)
		if initialPoints > 0 {
			if err := l.Credit(initialPoints, models.EntryAdminGrant, "Initial points"); err != nil {
				return nil, err
			}
		}
		created = s.touched(l)
		return &repository.Changeset{NewUser: &created, Entries: l.Entries()}, nil
	})
	if err != nil {
		return nil, err
	}
	if initialPoints > 0 {
		metrics.RecordPointsMoved(string(models.EntryAdminGrant), initialPoints)
	}
	s.logger.Info("User created", "user_id", created.ID, "username", created.Username, "initial_points", initialPoints)
	return &created, nil
}

// GrantPoints credits points to a user from the back office.
func (s *ProjectService) GrantPoints(ctx context.Context, userID uuid.UUID, points int64, reason string) (*models.User, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrValidation)
	}
	if reason == "" {
		reason = "Granted by admin"
	}
	var updated models.User
	err := s.store.WithUsers(ctx, []uuid.UUID{userID}, func(snap *repository.Snapshot) (*repository.Changeset, error) {
		l := s.open(snap.Users[userID], nil)
		if err := l.Credit(points, models.EntryAdminGrant, reason); err != nil {
			return nil, err
		}
		updated = s.touched(l)
		return &repository.Changeset{Users: []models.User{updated}, Entries: l.Entries()}, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordPointsMoved(string(models.EntryAdminGrant), points)
	s.logger.Info("Points granted", "user_id", userID, "points", points)
	return &updated, nil
}

// RequestWithdrawal freezes points until an admin reviews the request.
func (s *ProjectService) RequestWithdrawal(ctx context.Context, userID uuid.UUID, points int64) (*models.Withdrawal, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrValidation)
	}
	w := &models.Withdrawal{ID: uuid.New(), UserID: userID, Points: points, Status: models.WithdrawalPending, CreatedAt: s.now()}
	err := s.store.WithUsers(ctx, []uuid.UUID{userID}, func(snap *repository.Snapshot) (*repository.Changeset, error) {
		l := s.open(snap.Users[userID], nil)
		if err := l.Freeze(points, models.EntryWithdrawFreeze, fmt.Sprintf("Withdrawal of %d points requested", points)); err != nil {
			return nil, err
		}
		return &repository.Changeset{NewWithdrawal: w, Users: []models.User{s.touched(l)}, Entries: l.Entries()}, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordWithdrawal(models.WithdrawalPending)
	return w, nil
}

// ReviewWithdrawal approves (points leave the system) or rejects (points are
// unfrozen) a pending request.
func (s *ProjectService) ReviewWithdrawal(ctx context.Context, id uuid.UUID, approve bool) (*models.Withdrawal, error) {
	var reviewed models.Withdrawal
	err := s.store.WithWithdrawal(ctx, id, func(snap *repository.Snapshot) (*repository.Changeset, error) {
		w := snap.Withdrawal
		if w.Status != models.WithdrawalPending {
			return nil, fmt.Errorf("%w: status is %s", ErrAlreadyReviewed, w.Status)
		}
		l := s.open(snap.Users[w.UserID], nil)
		reviewed = *w
		now := s.now()
		reviewed.ReviewedAt = &now
		if approve {
			reviewed.Status = models.WithdrawalApproved
			if err := l.Forfeit(w.Points, models.EntryWithdrawPayout, fmt.Sprintf("Withdrawal of %d points paid out", w.Points)); err != nil {
				return nil, err
			}
		} else {
			reviewed.Status = models.WithdrawalRejected
			if err := l.Unfreeze(w.Points, models.EntryWithdrawRelease, fmt.Sprintf("Withdrawal of %d points rejected", w.Points)); err != nil {
				return nil, err
			}
		}
		return &repository.Changeset{Withdrawal: &reviewed, Users: []models.User{s.touched(l)}, Entries: l.Entries()}, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordWithdrawal(reviewed.Status)
	s.logger.Info("Withdrawal reviewed", "withdrawal_id", id, "user_id", reviewed.UserID, "status", reviewed.Status)
	return &reviewed, nil
}

func (s *ProjectService) PendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, models.WithdrawalPending)
}
