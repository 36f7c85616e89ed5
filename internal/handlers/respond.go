package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/ledger"
	"github.com/pivote/backend/internal/middleware"
	"github.com/pivote/backend/internal/repository"
	"github.com/pivote/backend/internal/services"
	"github.com/pivote/backend/internal/settlement"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a domain error to its HTTP status. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, settlement.ErrInvalidResult):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, settlement.ErrProjectUnavailable):
		return http.StatusGone
	case errors.Is(err, services.ErrVoteRejected),
		errors.Is(err, settlement.ErrAlreadySettled),
		errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrProjectOpen),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with one JSON error. Internal failures, invariant
// violations included, are logged and reported without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error(op, "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
	case http.StatusServiceUnavailable:
		logger.Warn(op, "error", err)
		writeJSON(w, status, errorResponse{Error: "storage unavailable, try again later"})
	default:
		writeJSON(w, status, errorResponse{Error: err.Error()})
	}
}

// decode checks the body against the command's schema and then unmarshals it.
func decode(r *http.Request, v *services.Validator, command string, dst interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", services.ErrValidation, err)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%w: invalid JSON", services.ErrValidation)
	}
	if err := v.Validate(command, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", services.ErrValidation, name)
	}
	return id, nil
}

// caller returns the authenticated identity or writes a 401.
func caller(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	return id, ok
}
