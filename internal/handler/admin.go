package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/istorica/mentorai/internal/model"
)

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		slog.Error("failed to list users", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

type setStatusRequest struct {
	Status model.UserStatus `json:"status"`
}

// handleSetUserStatus is the teacher approval flow: pending accounts
// become active, misbehaving ones get blocked.
func (h *Handler) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	switch req.Status {
	case model.UserPending, model.UserActive, model.UserBlocked:
	default:
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	if err := h.store.SetUserStatus(userID, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, r, http.StatusNotFound, "InvalidRequest")
			return
		}
		slog.Error("failed to set user status", "user_id", userID, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userId":  userID,
		"status":  req.Status,
	})
}
