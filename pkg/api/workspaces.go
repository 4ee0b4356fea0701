package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/apicollab/apicollab/pkg/store"
)

func decodeJSON(r *http.Request, into any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(into)
}

func (h *Handler) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.store.ListWorkspaces(r.Context())
	if err != nil {
		slog.Error("failed to list workspaces", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, workspaces)
}

func (h *Handler) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &input); err != nil || input.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	workspace := &store.Workspace{ID: uuid.NewString(), Name: input.Name}
	if err := h.store.CreateWorkspace(r.Context(), workspace); err != nil {
		slog.Error("failed to create workspace", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	// Every new workspace starts with a ready-to-send example request.
	defaultRequest := &store.Request{
		ID:              uuid.NewString(),
		WorkspaceID:     workspace.ID,
		Title:           "My First Request",
		Method:          http.MethodGet,
		URL:             "https://jsonplaceholder.typicode.com/todos/1",
		BodyContentType: "application/json",
	}
	if err := h.store.CreateRequest(r.Context(), defaultRequest); err != nil {
		slog.Error("failed to create default request", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"workspace":        workspace,
		"defaultRequestId": defaultRequest.ID,
	})
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["id"]
	requests, err := h.store.ListRequests(r.Context(), workspaceID)
	if err != nil {
		slog.Error("failed to list requests", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["id"]
	if _, err := h.store.GetWorkspace(r.Context(), workspaceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Workspace not found")
			return
		}
		slog.Error("failed to look up workspace", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	request := &store.Request{
		ID:              uuid.NewString(),
		WorkspaceID:     workspaceID,
		Title:           "Untitled Request",
		Method:          http.MethodGet,
		BodyContentType: "application/json",
	}
	if err := h.store.CreateRequest(r.Context(), request); err != nil {
		slog.Error("failed to create request", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusCreated, request)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.store.GetRequest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Request not found")
			return
		}
		slog.Error("failed to look up request", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, request)
}
