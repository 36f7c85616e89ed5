package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/pivote/backend/internal/ledger"
	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/observability/metrics"
	"github.com/pivote/backend/internal/repository"
	"github.com/pivote/backend/internal/settlement"
)

type PublishResultCmd struct {
	ProjectID uuid.UUID
	ActorID   uuid.UUID
	Result    models.Option
	// Admin skips the creator check.
	Admin bool
}

// PublishResult settles the project. The engine runs on the locked snapshot
// and its outcome is written in the same transaction, or nothing is.
func (s *ProjectService) PublishResult(ctx context.Context, cmd PublishResultCmd) (*settlement.Outcome, error) {
	if !cmd.Result.Valid() {
		return nil, settlement.ErrInvalidResult
	}

	unlock := s.locks.Lock(cmd.ProjectID)
	defer unlock()

	start := time.Now()
	var out *settlement.Outcome
	err := s.store.WithProject(ctx, cmd.ProjectID, nil, func(snap *repository.Snapshot) (*repository.Changeset, error) {
		if !cmd.Admin && snap.Project.CreatorID != cmd.ActorID {
			return nil, ErrForbidden
		}
		o, err := s.engine.Settle(settlement.Input{
			Project:       snap.Project,
			Result:        cmd.Result,
			Accounts:      snap.Users,
			CreatorHidden: snap.CreatorHidden(),
		})
		if err != nil {
			return nil, err
		}
		out = o
		users := make([]models.User, 0, len(o.Deltas))
		for _, d := range o.Deltas {
			users = append(users, o.Accounts[d.UserID])
		}
		return &repository.Changeset{Project: o.Project, Users: users, Entries: o.Entries, Settled: true}, nil
	})
	if err != nil {
		s.recordFailedSettlement(cmd.ProjectID, time.Since(start), err)
		return nil, err
	}

	metrics.RecordSettlement(time.Since(start), metrics.Success)
	for _, e := range out.Entries {
		metrics.RecordPointsMoved(string(e.Type), e.Delta)
	}
	creatorNet := out.Summary.TotalIncorrectPoints - out.Summary.RewardsToOthers
	s.logger.Info("Result published",
		"project_id", cmd.ProjectID,
		"result", cmd.Result,
		"winners", out.Summary.Winners,
		"losers", out.Summary.Losers,
		"rewards_to_others", out.Summary.RewardsToOthers,
		"remaining", out.Summary.Remaining,
		"creator_net", creatorNet,
	)
	return out, nil
}

func (s *ProjectService) recordFailedSettlement(projectID uuid.UUID, d time.Duration, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvariant):
		metrics.RecordSettlement(d, metrics.Error)
		s.logger.Error("Settlement aborted on ledger invariant", "project_id", projectID, "error", err)
	case errors.Is(err, settlement.ErrAlreadySettled), errors.Is(err, settlement.ErrProjectUnavailable),
		errors.Is(err, ErrForbidden), errors.Is(err, repository.ErrNotFound):
		metrics.RecordSettlement(d, metrics.Rejected)
	default:
		metrics.RecordSettlement(d, metrics.Error)
		s.logger.Error("Settlement failed", "project_id", projectID, "error", err)
	}
}

// PublishReport is the result of one command in a PublishResults batch.
type PublishReport struct {
	ProjectID uuid.UUID
	Outcome   *settlement.Outcome
	Err       error

	index int
}

// PublishResults settles several projects concurrently and returns one
// report per command, in command order. A failure affects only its own project.
func (s *ProjectService) PublishResults(ctx context.Context, cmds []PublishResultCmd) []PublishReport {
	p := pool.NewWithResults[PublishReport]().WithMaxGoroutines(s.concurrency)
	for i, cmd := range cmds {
		p.Go(func() PublishReport {
			out, err := s.PublishResult(ctx, cmd)
			return PublishReport{ProjectID: cmd.ProjectID, Outcome: out, Err: err, index: i}
		})
	}
	reports := p.Wait()
	sort.Slice(reports, func(i, j int) bool { return reports[i].index < reports[j].index })
	return reports
}
