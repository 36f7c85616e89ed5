package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/auth"
	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/services"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// AccountCommands is the subset of services.ProjectService the account and
// back-office routes use.
type AccountCommands interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error)
	CreateUser(ctx context.Context, username string, initialPoints int64) (*models.User, error)
	GrantPoints(ctx context.Context, userID uuid.UUID, points int64, reason string) (*models.User, error)
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, points int64) (*models.Withdrawal, error)
	ReviewWithdrawal(ctx context.Context, id uuid.UUID, approve bool) (*models.Withdrawal, error)
	PendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error)
}

// TokenIssuer hands a bearer token to users created from the back office.
type TokenIssuer interface {
	IssueToken(userID uuid.UUID, role string) (string, error)
}

// AccountHandler serves /v1/me, /v1/withdrawals and /v1/admin endpoints.
type AccountHandler struct {
	Accounts  AccountCommands
	Tokens    TokenIssuer
	Validator *services.Validator
	Logger    *slog.Logger
}

type userResponse struct {
	models.User
	AvailablePoints int64 `json:"available_points"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{User: *u, AvailablePoints: u.Available()}
}

type createUserRequest struct {
	Username      string `json:"username"`
	InitialPoints int64  `json:"initial_points"`
}

type createUserResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token,omitempty"`
}

type pointsRequest struct {
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// --- GET /v1/me ---

func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.Accounts.GetUser(r.Context(), who.UserID)
	if err != nil {
		writeError(w, h.Logger, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// --- GET /v1/me/history?limit=N ---

func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, h.Logger, "history", fmt.Errorf("%w: limit must be a positive integer", services.ErrValidation))
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	entries, err := h.Accounts.History(r.Context(), who.UserID, limit)
	if err != nil {
		writeError(w, h.Logger, "history", err)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- POST /v1/withdrawals ---

func (h *AccountHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req pointsRequest
	if err := decode(r, h.Validator, services.CommandRequestWithdrawal, &req); err != nil {
		writeError(w, h.Logger, "request withdrawal", err)
		return
	}
	wd, err := h.Accounts.RequestWithdrawal(r.Context(), who.UserID, req.Points)
	if err != nil {
		writeError(w, h.Logger, "request withdrawal", err)
		return
	}
	writeJSON(w, http.StatusCreated, wd)
}

// --- GET /v1/admin/withdrawals ---

func (h *AccountHandler) PendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.PendingWithdrawals(r.Context())
	if err != nil {
		writeError(w, h.Logger, "list withdrawals", err)
		return
	}
	if list == nil {
		list = []models.Withdrawal{}
	}
	writeJSON(w, http.StatusOK, list)
}

// --- POST /v1/admin/withdrawals/{id}/approve, /reject ---

func (h *AccountHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

func (h *AccountHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *AccountHandler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, "review withdrawal", err)
		return
	}
	wd, err := h.Accounts.ReviewWithdrawal(r.Context(), id, approve)
	if err != nil {
		writeError(w, h.Logger, "review withdrawal", err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

// --- POST /v1/admin/users ---

func (h *AccountHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, h.Validator, services.CommandCreateUser, &req); err != nil {
		writeError(w, h.Logger, "create user", err)
		return
	}
	u, err := h.Accounts.CreateUser(r.Context(), req.Username, req.InitialPoints)
	if err != nil {
		writeError(w, h.Logger, "create user", err)
		return
	}
	resp := createUserResponse{User: newUserResponse(u)}
	if h.Tokens != nil {
		tok, err := h.Tokens.IssueToken(u.ID, auth.RoleUser)
		if err != nil {
			writeError(w, h.Logger, "issue token", err)
			return
		}
		resp.Token = tok
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- POST /v1/admin/users/{id}/grant ---

func (h *AccountHandler) GrantPoints(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, "grant points", err)
		return
	}
	var req pointsRequest
	if err := decode(r, h.Validator, services.CommandGrantPoints, &req); err != nil {
		writeError(w, h.Logger, "grant points", err)
		return
	}
	u, err := h.Accounts.GrantPoints(r.Context(), id, req.Points, req.Reason)
	if err != nil {
		writeError(w, h.Logger, "grant points", err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}
