package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/apicollab/apicollab/pkg/store"
)

const sessionDuration = 5 * time.Hour

type contextKey string

const userIDKey contextKey = "userID"

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if _, err := h.store.GetUserByEmail(r.Context(), creds.Email); err == nil {
		respondError(w, http.StatusBadRequest, "User already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to look up user", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	user := &store.User{
		ID:           uuid.NewString(),
		Username:     creds.Username,
		Email:        creds.Email,
		PasswordHash: string(hash),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		slog.Error("failed to create user", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.issueToken(w, r, user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), creds.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusBadRequest, "Invalid Credentials")
			return
		}
		slog.Error("failed to look up user", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid Credentials")
		return
	}

	h.issueToken(w, r, user)
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, user *store.User) {
	session := &store.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(sessionDuration),
	}
	if err := h.store.CreateSession(r.Context(), session); err != nil {
		slog.Error("failed to create session", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": session.Token})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(userIDKey).(string)
	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		slog.Error("failed to look up user", "err", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// requireAuth resolves the bearer token to a live session and stashes the
// user id on the request context.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			respondError(w, http.StatusUnauthorized, "authorization token required")
			return
		}
		session, err := h.store.GetSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			slog.Error("failed to look up session", "err", err)
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if time.Now().After(session.ExpiresAt) {
			respondError(w, http.StatusUnauthorized, "token expired")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, session.UserID)))
	}
}
