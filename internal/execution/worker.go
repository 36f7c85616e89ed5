package execution

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/pivote/backend/internal/ledger"
	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/observability/metrics"
)

// SettlementAuditArgs is enqueued in the transaction that settles a project.
type SettlementAuditArgs struct {
	ProjectID uuid.UUID `json:"project_id"`
}

func (SettlementAuditArgs) Kind() string { return "settlement_audit" }

// EntrySource defines what the worker reads back after commit.
type EntrySource interface {
	ProjectEntries(ctx context.Context, projectID uuid.UUID) ([]models.LedgerEntry, error)
}

// SettlementAuditWorker re-reads a settled project's history and checks that
// its total-point deltas sum to zero.
type SettlementAuditWorker struct {
	river.WorkerDefaults[SettlementAuditArgs]
	entries EntrySource
	logger  *slog.Logger
}

func NewSettlementAuditWorker(entries EntrySource, logger *slog.Logger) *SettlementAuditWorker {
	return &SettlementAuditWorker{entries: entries, logger: logger}
}

func (w *SettlementAuditWorker) Work(ctx context.Context, job *river.Job[SettlementAuditArgs]) error {
	projectID := job.Args.ProjectID

	entries, err := w.entries.ProjectEntries(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load entries for project %s: %w", projectID, err)
	}
	if len(entries) == 0 {
		// Nothing committed for this id; retrying will not change that.
		return river.JobCancel(fmt.Errorf("project %s has no history", projectID))
	}

	if net := ledger.Net(entries); net != 0 {
		metrics.RecordAuditFailure()
		w.logger.Error("Settlement does not conserve points", "project_id", projectID, "net", net, "entries", len(entries))
		return river.JobCancel(fmt.Errorf("%w: project %s nets %d", ledger.ErrInvariant, projectID, net))
	}

	w.logger.Info("Settlement audited", "project_id", projectID, "entries", len(entries))
	return nil
}
