// Package api exposes the conventional REST surface around the collaborative
// core: account registration and login, workspace and request CRUD.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/apicollab/apicollab/pkg/store"
)

type Handler struct {
	store store.Store
}

func New(s store.Store) *Handler {
	return &Handler{store: s}
}

func (h *Handler) Register(r *mux.Router) {
	r.Methods(http.MethodPost).Path("/api/auth/register").HandlerFunc(h.registerUser)
	r.Methods(http.MethodPost).Path("/api/auth/login").HandlerFunc(h.login)
	r.Methods(http.MethodGet).Path("/api/auth").HandlerFunc(h.requireAuth(h.currentUser))

	r.Methods(http.MethodGet).Path("/api/workspaces").HandlerFunc(h.requireAuth(h.listWorkspaces))
	r.Methods(http.MethodPost).Path("/api/workspaces").HandlerFunc(h.requireAuth(h.createWorkspace))
	r.Methods(http.MethodGet).Path("/api/workspaces/{id}/requests").HandlerFunc(h.requireAuth(h.listRequests))
	r.Methods(http.MethodPost).Path("/api/workspaces/{id}/requests").HandlerFunc(h.requireAuth(h.createRequest))
	r.Methods(http.MethodGet).Path("/api/requests/{id}").HandlerFunc(h.requireAuth(h.getRequest))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
