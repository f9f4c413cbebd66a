package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/istorica/mentorai/internal/i18n"
	"github.com/istorica/mentorai/internal/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if user == nil {
		h.respondError(w, r, http.StatusUnauthorized, "LoginError")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.respondError(w, r, http.StatusUnauthorized, "LoginError")
		return
	}

	switch user.Status {
	case model.UserPending:
		h.respondError(w, r, http.StatusForbidden, "AccountPending")
		return
	case model.UserBlocked:
		h.respondError(w, r, http.StatusForbidden, "AccountBlocked")
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullname"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if req.Username == "" || req.Password == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	existing, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("failed to check username", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if existing != nil {
		h.respondError(w, r, http.StatusConflict, "UserExists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	// New accounts stay pending until a teacher approves them.
	if _, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
	}); err != nil {
		slog.Error("failed to create user", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": appI18n.T(r.Context(), "RegisterSuccess"),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		_ = h.store.DeleteAuthSession(token)
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireAuth is middleware that resolves the session token to an
// active user and stores it in the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		sess, err := h.store.GetAuthSession(token)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			h.respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if sess == nil {
			h.respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := h.store.GetUserByID(sess.UserID)
		if err != nil || user == nil || user.Status != model.UserActive {
			h.respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": appI18n.T(r.Context(), "Unauthorized")})
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondJSON(w, http.StatusForbidden, map[string]string{"error": appI18n.T(r.Context(), "Forbidden")})
		})
	}
}
