package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/auth"
	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/services"
	"github.com/pivote/backend/internal/settlement"
)

// ProjectCommands is the subset of services.ProjectService the project routes use.
type ProjectCommands interface {
	CreateProject(ctx context.Context, cmd services.CreateProjectCmd) (*models.Project, error)
	CastVote(ctx context.Context, cmd services.CastVoteCmd) (*models.VoteDetail, error)
	PublishResult(ctx context.Context, cmd services.PublishResultCmd) (*settlement.Outcome, error)
	Pause(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, error)
	Resume(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, error)
	HideProject(ctx context.Context, projectID, userID uuid.UUID) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, viewer uuid.UUID) ([]*models.Project, error)
}

// ProjectHandler serves /v1/projects endpoints.
type ProjectHandler struct {
	Projects  ProjectCommands
	Validator *services.Validator
	Logger    *slog.Logger
}

type createProjectRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	MaxPointsPerOption int64  `json:"max_points_per_option"`
}

type castVoteRequest struct {
	Option models.Option `json:"option"`
	Points int64         `json:"points"`
}

type publishResultRequest struct {
	Result models.Option `json:"result"`
}

type publishResultResponse struct {
	Project *models.Project      `json:"project"`
	Summary settlement.Summary   `json:"summary"`
	Deltas  []settlement.Delta   `json:"deltas"`
	Entries []models.LedgerEntry `json:"entries"`
}

// --- GET /v1/projects ---

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	projects, err := h.Projects.ListProjects(r.Context(), who.UserID)
	if err != nil {
		writeError(w, h.Logger, "list projects", err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// --- POST /v1/projects ---

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req createProjectRequest
	if err := decode(r, h.Validator, services.CommandCreateProject, &req); err != nil {
		writeError(w, h.Logger, "create project", err)
		return
	}
	p, err := h.Projects.CreateProject(r.Context(), services.CreateProjectCmd{
		CreatorID:          who.UserID,
		Title:              req.Title,
		Description:        req.Description,
		MaxPointsPerOption: req.MaxPointsPerOption,
	})
	if err != nil {
		writeError(w, h.Logger, "create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// --- GET /v1/projects/{id} ---

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, "get project", err)
		return
	}
	p, err := h.Projects.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "get project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- POST /v1/projects/{id}/votes ---

func (h *ProjectHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, "cast vote", err)
		return
	}
	var req castVoteRequest
	if err := decode(r, h.Validator, services.CommandCastVote, &req); err != nil {
		writeError(w, h.Logger, "cast vote", err)
		return
	}
	vote, err := h.Projects.CastVote(r.Context(), services.CastVoteCmd{
		ProjectID: id,
		VoterID:   who.UserID,
		Option:    req.Option,
		Points:    req.Points,
	})
	if err != nil {
		writeError(w, h.Logger, "cast vote", err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

// --- POST /v1/projects/{id}/result ---

// PublishResult settles the project. Admin tokens may publish any project.
func (h *ProjectHandler) PublishResult(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, "publish result", err)
		return
	}
	var req publishResultRequest
	if err := decode(r, h.Validator, services.CommandPublishResult, &req); err != nil {
		writeError(w, h.Logger, "publish result", err)
		return
	}
	out, err := h.Projects.PublishResult(r.Context(), services.PublishResultCmd{
		ProjectID: id,
		ActorID:   who.UserID,
		Result:    req.Result,
		Admin:     who.Role == auth.RoleAdmin,
	})
	if err != nil {
		writeError(w, h.Logger, "publish result", err)
		return
	}
	writeJSON(w, http.StatusOK, publishResultResponse{
		Project: out.Project,
		Summary: out.Summary,
		Deltas:  out.Deltas,
		Entries: out.Entries,
	})
}

// --- POST /v1/projects/{id}/pause, /resume ---

func (h *ProjectHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, h.Projects.Pause)
}

func (h *ProjectHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, h.Projects.Resume)
}

func (h *ProjectHandler) setPaused(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) (*models.Project, error)) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, "pause project", err)
		return
	}
	p, err := fn(r.Context(), id, who.UserID)
	if err != nil {
		writeError(w, h.Logger, "pause project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- POST /v1/projects/{id}/hide ---

func (h *ProjectHandler) HideProject(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, "hide project", err)
		return
	}
	if err := h.Projects.HideProject(r.Context(), id, who.UserID); err != nil {
		writeError(w, h.Logger, "hide project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
