package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
	"trivia-backend/internal/services"
)

// QuestionSource lists the playable pool.
type QuestionSource interface {
	Filter(sport models.Sport, category models.Category) []models.Question
}

type JobService interface {
	RequestQuestions(ctx context.Context, userID uuid.UUID, req models.GenerateQuestionsRequest) (*models.Job, error)
	Get(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error)
}

type QuestionHandler struct {
	questions QuestionSource
	jobs      JobService
}

func NewQuestionHandler(questions QuestionSource, jobs JobService) *QuestionHandler {
	return &QuestionHandler{questions: questions, jobs: jobs}
}

// List returns questions without their answers.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	sport, err := services.ParseSport(r.URL.Query().Get("sport"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	category := models.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"category": "Unknown category"}, r))
		return
	}

	pool := h.questions.Filter(sport, category)
	out := make([]models.PublicQuestion, 0, len(pool))
	for _, q := range pool {
		out = append(out, q.Public())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QuestionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	job, err := h.jobs.RequestQuestions(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (h *QuestionHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobs.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}
