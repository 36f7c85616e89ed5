package router

import (
	"net/http"

	"github.com/pivote/backend/internal/handlers"
	"github.com/pivote/backend/internal/middleware"
)

// Config wires the handlers to their guards.
type Config struct {
	Projects *handlers.ProjectHandler
	Accounts *handlers.AccountHandler
	Tokens   middleware.TokenValidator
	// AdminKeyHash is the bcrypt hash of the back-office key. Empty disables /v1/admin.
	AdminKeyHash []byte
}

// New returns an http.Handler that serves the API under /v1.
// User routes: BearerAuth -> handler. Admin routes: AdminKey -> handler.
func New(cfg Config) http.Handler {
	mux := http.NewServeMux()
	user := middleware.BearerAuth(cfg.Tokens)
	admin := middleware.AdminKey(cfg.AdminKeyHash)

	p := cfg.Projects
	mux.Handle("GET /v1/projects", user(http.HandlerFunc(p.ListProjects)))
	mux.Handle("POST /v1/projects", user(http.HandlerFunc(p.CreateProject)))
	mux.Handle("GET /v1/projects/{id}", user(http.HandlerFunc(p.GetProject)))
	mux.Handle("POST /v1/projects/{id}/votes", user(http.HandlerFunc(p.CastVote)))
	mux.Handle("POST /v1/projects/{id}/result", user(http.HandlerFunc(p.PublishResult)))
	mux.Handle("POST /v1/projects/{id}/pause", user(http.HandlerFunc(p.Pause)))
	mux.Handle("POST /v1/projects/{id}/resume", user(http.HandlerFunc(p.Resume)))
	mux.Handle("POST /v1/projects/{id}/hide", user(http.HandlerFunc(p.HideProject)))

	a := cfg.Accounts
	mux.Handle("GET /v1/me", user(http.HandlerFunc(a.GetMe)))
	mux.Handle("GET /v1/me/history", user(http.HandlerFunc(a.History)))
	mux.Handle("POST /v1/withdrawals", user(http.HandlerFunc(a.RequestWithdrawal)))

	mux.Handle("GET /v1/admin/withdrawals", admin(http.HandlerFunc(a.PendingWithdrawals)))
	mux.Handle("POST /v1/admin/withdrawals/{id}/approve", admin(http.HandlerFunc(a.ApproveWithdrawal)))
	mux.Handle("POST /v1/admin/withdrawals/{id}/reject", admin(http.HandlerFunc(a.RejectWithdrawal)))
	mux.Handle("POST /v1/admin/users", admin(http.HandlerFunc(a.CreateUser)))
	mux.Handle("POST /v1/admin/users/{id}/grant", admin(http.HandlerFunc(a.GrantPoints)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}
