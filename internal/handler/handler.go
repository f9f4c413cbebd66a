// Package handler exposes the JSON API consumed by the frontend router.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/istorica/mentorai/internal/gateway"
	appI18n "github.com/istorica/mentorai/internal/i18n"
	"github.com/istorica/mentorai/internal/model"
	"github.com/istorica/mentorai/internal/store"
)

// Questions shorter than this are rejected before reaching the gateway.
const minQuestionLen = 5

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	gateway *gateway.Gateway
}

// New creates a new Handler.
func New(s *store.Store, g *gateway.Gateway) *Handler {
	return &Handler{store: s, gateway: g}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)

	r.Post("/chat", h.handleChat)

	r.Post("/save-quiz", h.handleSaveQuiz)
	r.Post("/update-score", h.handleUpdateScore)
	r.Get("/quiz-history", h.handleQuizHistory)
	r.Get("/quiz/{quizID}", h.handleGetQuiz)
	r.Get("/student-stats", h.handleStudentStats)
	r.Post("/delete-quiz", h.handleDeleteQuiz)

	r.Group(func(gr chi.Router) {
		gr.Use(h.requireAuth)
		gr.Get("/me", h.handleMe)
	})

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(h.requireAuth, requireRole(model.UserRoleTeacher))
		ar.Get("/users", h.handleListUsers)
		ar.Post("/users/{userID}/status", h.handleSetUserStatus)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError writes a localized error payload.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}

type chatRequest struct {
	UserMessage string         `json:"userMessage"`
	Mode        gateway.Mode   `json:"mode"`
	Language    model.Language `json:"language"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if req.Mode == "" {
		req.Mode = gateway.ModeStandard
	}
	if req.Language == "" {
		req.Language = model.LangRO
	}

	question := strings.TrimSpace(req.UserMessage)
	if utf8.RuneCountInString(question) < minQuestionLen {
		h.respondError(w, r, http.StatusBadRequest, "QuestionTooShort")
		return
	}

	ans, err := h.gateway.Answer(r.Context(), question, req.Mode, req.Language)
	if err != nil {
		if errors.Is(err, gateway.ErrEmptyQuestion) {
			h.respondError(w, r, http.StatusBadRequest, "QuestionTooShort")
			return
		}
		slog.Error("chat gateway failed", "mode", req.Mode, "error", err)
		h.respondError(w, r, http.StatusBadGateway, "GatewayError")
		return
	}

	respondJSON(w, http.StatusOK, ans)
}

func (h *Handler) handleSaveQuiz(w http.ResponseWriter, r *http.Request) {
	var in model.QuizInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	res, err := h.store.SaveQuiz(in)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
			return
		}
		slog.Error("save quiz failed", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"quizId":    res.ID,
		"timestamp": res.Timestamp,
	})
}

type updateScoreRequest struct {
	QuizID   string `json:"quizId"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
}

func (h *Handler) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	var req updateScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	res, err := h.store.UpdateScore(req.QuizID, req.Score, req.MaxScore)
	if err != nil {
		var verr *store.ValidationError
		switch {
		case errors.As(err, &verr):
			h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		case errors.Is(err, store.ErrQuizNotFound):
			h.respondError(w, r, http.StatusNotFound, "QuizNotFound")
		default:
			slog.Error("update score failed", "quiz_id", req.QuizID, "error", err)
			h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"quizId":     res.ID,
		"score":      res.Score,
		"maxScore":   res.MaxScore,
		"percentage": res.Percentage,
	})
}

func (h *Handler) handleQuizHistory(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		h.respondError(w, r, http.StatusBadRequest, "StudentIDRequired")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	history, err := h.store.QuizHistory(studentID, limit, offset)
	if err != nil {
		slog.Error("quiz history failed", "student_id", studentID, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if history == nil {
		history = []model.QuizSummary{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quizID")

	q, err := h.store.GetQuiz(id)
	if err != nil {
		slog.Error("get quiz failed", "quiz_id", id, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if q == nil {
		h.respondError(w, r, http.StatusNotFound, "QuizNotFound")
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *Handler) handleStudentStats(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		h.respondError(w, r, http.StatusBadRequest, "StudentIDRequired")
		return
	}

	stats, err := h.store.StudentStats(studentID)
	if err != nil {
		slog.Error("student stats failed", "student_id", studentID, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type deleteQuizRequest struct {
	QuizID    string `json:"quizId"`
	StudentID string `json:"studentId"`
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	var req deleteQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	if err := h.store.DeleteQuiz(req.QuizID, req.StudentID); err != nil {
		var aerr *store.AuthorizationError
		if errors.As(err, &aerr) {
			h.respondError(w, r, http.StatusForbidden, "NotAuthorized")
			return
		}
		slog.Error("delete quiz failed", "quiz_id", req.QuizID, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"quizId":  req.QuizID,
	})
}
