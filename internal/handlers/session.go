package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
)

type QuizService interface {
	Start(ctx context.Context, who models.AuthenticatedUser, req models.StartSessionRequest) (models.SessionSnapshot, error)
	Get(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error)
	Answer(who models.AuthenticatedUser, id, option string) (models.SessionSnapshot, error)
	Advance(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error)
	Pause(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error)
	Resume(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error)
	Hint(who models.AuthenticatedUser, id string, kind models.HintKind) (models.Hint, models.SessionSnapshot, error)
	Abandon(who models.AuthenticatedUser, id string) error
}

type SessionHandler struct {
	quiz QuizService
}

func NewSessionHandler(quiz QuizService) *SessionHandler {
	return &SessionHandler{quiz: quiz}
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	who, _ := middleware.GetIdentity(r.Context())
	snap, err := h.quiz.Start(r.Context(), who, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.quiz.Get)
}

func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Option == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"option": "Option is required"}, r))
		return
	}

	h.respond(w, r, func(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
		return h.quiz.Answer(who, id, req.Option)
	})
}

func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.quiz.Advance)
}

func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.quiz.Pause)
}

func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.quiz.Resume)
}

func (h *SessionHandler) Hint(w http.ResponseWriter, r *http.Request) {
	var req models.HintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	who, _ := middleware.GetIdentity(r.Context())
	hint, snap, err := h.quiz.Hint(who, chi.URLParam(r, "id"), req.Kind)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hint":    hint,
		"session": snap,
	})
}

func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	who, _ := middleware.GetIdentity(r.Context())
	if err := h.quiz.Abandon(who, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, fn func(models.AuthenticatedUser, string) (models.SessionSnapshot, error)) {
	who, _ := middleware.GetIdentity(r.Context())
	snap, err := fn(who, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
