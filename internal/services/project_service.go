package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/ledger"
	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/observability/metrics"
	"github.com/pivote/backend/internal/repository"
	"github.com/pivote/backend/internal/settlement"
)

// ProjectService runs every command that moves points. A command holds its
// project's lock and one store transaction from snapshot to commit.
type ProjectService struct {
	store       repository.Store
	engine      *settlement.Engine
	locks       *keyedMutex
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
}

type ServiceOption func(*ProjectService)

// WithClock overrides the time source for entries, votes and settlement.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *ProjectService) { s.now = now }
}

// WithSettleConcurrency bounds how many projects PublishResults settles at once.
func WithSettleConcurrency(n int) ServiceOption {
	return func(s *ProjectService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewProjectService(store repository.Store, logger *slog.Logger, opts ...ServiceOption) *ProjectService {
	s := &ProjectService{
		store:       store,
		locks:       newKeyedMutex(),
		logger:      logger,
		now:         time.Now,
		concurrency: 4,
	}
	for _, o := range opts {
		o(s)
	}
	s.engine = settlement.NewEngine(settlement.WithClock(s.now))
	return s
}

func (s *ProjectService) open(u models.User, projectID *uuid.UUID) *ledger.Ledger {
	l := ledger.Open(u, s.now)
	if projectID != nil {
		l.WithProject(*projectID)
	}
	return l
}

// touched returns the ledger's user stamped with the current time.
func (s *ProjectService) touched(l *ledger.Ledger) models.User {
	u := l.User()
	u.UpdatedAt = s.now()
	return u
}

type CreateProjectCmd struct {
	CreatorID          uuid.UUID
	Title              string
	Description        string
	MaxPointsPerOption int64
}

// CreateProject opens a project and freezes MaxPointsPerOption of the
// creator's points as reward coverage.
func (s *ProjectService) CreateProject(ctx context.Context, cmd CreateProjectCmd) (*models.Project, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if cmd.MaxPointsPerOption <= 0 {
		return nil, fmt.Errorf("%w: max points per option must be positive", ErrValidation)
	}

	p := &models.Project{
		ID:                 uuid.New(),
		CreatorID:          cmd.CreatorID,
		Title:              title,
		Description:        cmd.Description,
		MaxPointsPerOption: cmd.MaxPointsPerOption,
		Votes:              map[models.Option]int64{models.OptionYes: 0, models.OptionNo: 0},
		FrozenPoints:       cmd.MaxPointsPerOption,
		CreatedAt:          s.now(),
	}
	err := s.store.WithUsers(ctx, []uuid.UUID{cmd.CreatorID}, func(snap *repository.Snapshot) (*repository.Changeset, error) {
		l := s.open(snap.Users[cmd.CreatorID], &p.ID)
		desc := fmt.Sprintf("Froze %d points to cover rewards on %q", p.FrozenPoints, p.Title)
		if err := l.Freeze(p.FrozenPoints, models.EntryProjectFreeze, desc); err != nil {
			return nil, err
		}
		return &repository.Changeset{NewProject: p, Users: []models.User{s.touched(l)}, Entries: l.Entries()}, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Project created", "project_id", p.ID, "creator_id", p.CreatorID, "max_points_per_option", p.MaxPointsPerOption)
	return p, nil
}

type CastVoteCmd struct {
	ProjectID uuid.UUID
	VoterID   uuid.UUID
	Option    models.Option
	Points    int64
}

// CastVote freezes the stake and records the vote. The creator may vote on
// their own project.
func (s *ProjectService) CastVote(ctx context.Context, cmd CastVoteCmd) (*models.VoteDetail, error) {
	if !cmd.Option.Valid() {
		return nil, fmt.Errorf("%w: option must be yes or no", ErrValidation)
	}
	if cmd.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrValidation)
	}

	unlock := s.locks.Lock(cmd.ProjectID)
	defer unlock()

	var vote models.VoteDetail
	err := s.store.WithProject(ctx, cmd.ProjectID, []uuid.UUID{cmd.VoterID}, func(snap *repository.Snapshot) (*repository.Changeset, error) {
		p := snap.Project
		switch {
		case p.ResultPublished:
			return nil, fmt.Errorf("%w: result already published", ErrVoteRejected)
		case snap.CreatorHidden():
			return nil, settlement.ErrProjectUnavailable
		case p.IsPaused:
			return nil, fmt.Errorf("%w: project is paused", ErrVoteRejected)
		case snap.Hidden[cmd.VoterID]:
			return nil, fmt.Errorf("%w: project is hidden by the voter", ErrVoteRejected)
		case p.Votes[cmd.Option]+cmd.Points > p.MaxPointsPerOption:
			return nil, fmt.Errorf("%w: %q has %d of %d points left", ErrVoteRejected,
				cmd.Option, p.MaxPointsPerOption-p.Votes[cmd.Option], p.MaxPointsPerOption)
		}

		l := s.open(snap.Users[cmd.VoterID], &p.ID)
		desc := fmt.Sprintf("Staked %d points on %q (%s)", cmd.Points, p.Title, cmd.Option)
		if err := l.Freeze(cmd.Points, models.EntryVoteFreeze, desc); err != nil {
			return nil, err
		}
		vote = models.VoteDetail{
			ID:        uuid.New(),
			ProjectID: p.ID,
			VoterID:   cmd.VoterID,
			Option:    cmd.Option,
			Points:    cmd.Points,
			CreatedAt: s.now(),
		}
		updated := p.Clone()
		updated.Votes[cmd.Option] += cmd.Points
		updated.VoteDetails = append(updated.VoteDetails, vote)
		return &repository.Changeset{
			Project:  updated,
			NewVotes: []models.VoteDetail{vote},
			Users:    []models.User{s.touched(l)},
			Entries:  l.Entries(),
		}, nil
	})
	switch {
	case err == nil:
		metrics.RecordVote(metrics.Success)
	case errors.Is(err, ErrVoteRejected), errors.Is(err, ledger.ErrInsufficientPoints),
		errors.Is(err, settlement.ErrProjectUnavailable):
		metrics.RecordVote(metrics.Rejected)
		return nil, err
	default:
		metrics.RecordVote(metrics.Error)
		return nil, err
	}
	return &vote, nil
}

// Pause stops a project from accepting votes. Only the creator may pause.
func (s *ProjectService) Pause(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, error) {
	return s.setPaused(ctx, projectID, actorID, true)
}

func (s *ProjectService) Resume(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, error) {
	return s.setPaused(ctx, projectID, actorID, false)
}

func (s *ProjectService) setPaused(ctx context.Context, projectID, actorID uuid.UUID, paused bool) (*models.Project, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	var updated *models.Project
	err := s.store.WithProject(ctx, projectID, nil, func(snap *repository.Snapshot) (*repository.Changeset, error) {
		p := snap.Project
		if p.CreatorID != actorID {
			return nil, ErrForbidden
		}
		if p.ResultPublished {
			return nil, settlement.ErrAlreadySettled
		}
		updated = p.Clone()
		if p.IsPaused == paused {
			return nil, nil
		}
		updated.IsPaused = paused
		return &repository.Changeset{Project: updated}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// HideProject removes the project from userID's list. Hiding twice is a no-op.
// The creator may only hide a settled project: once the creator hides it the
// project can no longer be voted on or settled, so nothing may still be frozen.
func (s *ProjectService) HideProject(ctx context.Context, projectID, userID uuid.UUID) error {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	return s.store.WithProject(ctx, projectID, []uuid.UUID{userID}, func(snap *repository.Snapshot) (*repository.Changeset, error) {
		if snap.Hidden[userID] {
			return nil, nil
		}
		if userID == snap.Project.CreatorID && !snap.Project.ResultPublished {
			return nil, ErrProjectOpen
		}
		return &repository.Changeset{Hide: []models.HiddenKey{{UserID: userID, ProjectID: projectID}}}, nil
	})
}

func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.store.GetProject(ctx, id)
}

// ListProjects returns the projects viewer has not hidden.
func (s *ProjectService) ListProjects(ctx context.Context, viewer uuid.UUID) ([]*models.Project, error) {
	return s.store.ListProjects(ctx, viewer)
}

func (s *ProjectService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *ProjectService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	return s.store.History(ctx, userID, limit)
}
