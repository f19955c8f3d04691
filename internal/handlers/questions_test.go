package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
	"trivia-backend/internal/services"
)

type stubQuestionSource struct{ pool []models.Question }

func (s stubQuestionSource) Filter(sport models.Sport, category models.Category) []models.Question {
	var out []models.Question
	for _, q := range s.pool {
		if q.Sport == sport && (category == "" || q.Category == category) {
			out = append(out, q)
		}
	}
	return out
}

type stubJobs struct {
	job *models.Job
	err error
}

func (s *stubJobs) RequestQuestions(ctx context.Context, userID uuid.UUID, req models.GenerateQuestionsRequest) (*models.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.job = &models.Job{ID: uuid.New(), UserID: userID, Status: "pending"}
	return s.job, nil
}

func (s *stubJobs) Get(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error) {
	if s.job == nil || s.job.ID != jobID || s.job.UserID != userID {
		return nil, &services.NotFoundError{Message: "Job not found"}
	}
	return s.job, nil
}

func TestQuestionHandler_ListHidesAnswers(t *testing.T) {
	src := stubQuestionSource{pool: []models.Question{
		{ID: "b1", Text: "Which team won in 2008?", Options: []string{"Celtics", "Lakers", "Spurs", "Heat"}, CorrectAnswer: "Celtics", Sport: models.SportBasketball, Category: models.CategoryTeams},
		{ID: "b2", Text: "Who wore 23?", Options: []string{"Jordan", "Bird", "Magic", "Kobe"}, CorrectAnswer: "Jordan", Sport: models.SportBasketball, Category: models.CategoryPlayers},
		{ID: "s1", Text: "Who won 2010?", Options: []string{"Spain", "Italy", "Brazil", "Germany"}, CorrectAnswer: "Spain", Sport: models.SportSoccer, Category: models.CategoryTeams},
	}}
	h := NewQuestionHandler(src, &stubJobs{})

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/questions?category=teams", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "correct_answer") {
		t.Fatalf("answers leaked: %s", rr.Body.String())
	}
	var got []models.PublicQuestion
	json.NewDecoder(rr.Body).Decode(&got)
	if len(got) != 1 || got[0].ID != "b1" {
		t.Fatalf("unexpected questions %+v", got)
	}

	rr = httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/questions?category=weather", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rr.Code)
	}
}

func TestQuestionHandler_GenerateAndPoll(t *testing.T) {
	jobs := &stubJobs{}
	h := NewQuestionHandler(stubQuestionSource{}, jobs)
	userID := uuid.New()

	rr := httptest.NewRecorder()
	h.Generate(rr, memberRequest(http.MethodPost, "/api/v1/questions/generate", `{"sport":"soccer","count":3}`, userID))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}

	r := chi.NewRouter()
	r.Get("/jobs/{id}", h.GetJob)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+jobs.job.ID.String(), nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected owner to read job, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/jobs/"+jobs.job.ID.String(), nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rr.Code)
	}
}

func TestQuestionHandler_GenerateUnavailable(t *testing.T) {
	h := NewQuestionHandler(stubQuestionSource{}, &stubJobs{err: &services.UnavailableError{Message: "Question generation is not configured"}})
	rr := httptest.NewRecorder()
	h.Generate(rr, memberRequest(http.MethodPost, "/api/v1/questions/generate", `{"sport":"soccer"}`, uuid.New()))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
