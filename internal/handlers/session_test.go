package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"trivia-backend/internal/models"
	"trivia-backend/internal/services"
	"trivia-backend/internal/session"
)

type stubQuiz struct {
	err       error
	lastStart models.StartSessionRequest
	lastWho   models.AuthenticatedUser
	lastOpt   string
}

func (s *stubQuiz) Start(ctx context.Context, who models.AuthenticatedUser, req models.StartSessionRequest) (models.SessionSnapshot, error) {
	s.lastStart, s.lastWho = req, who
	return models.SessionSnapshot{ID: "s1", Sport: req.Sport, Total: 3}, s.err
}

func (s *stubQuiz) Get(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
	return models.SessionSnapshot{ID: id}, s.err
}

func (s *stubQuiz) Answer(who models.AuthenticatedUser, id, option string) (models.SessionSnapshot, error) {
	s.lastOpt = option
	return models.SessionSnapshot{ID: id, Selected: &option}, s.err
}

func (s *stubQuiz) Advance(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
	return models.SessionSnapshot{ID: id, CurrentIndex: 1}, s.err
}

func (s *stubQuiz) Pause(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
	return models.SessionSnapshot{ID: id, Paused: true}, s.err
}

func (s *stubQuiz) Resume(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
	return models.SessionSnapshot{ID: id}, s.err
}

func (s *stubQuiz) Hint(who models.AuthenticatedUser, id string, kind models.HintKind) (models.Hint, models.SessionSnapshot, error) {
	return models.Hint{Kind: kind, Text: "Think Boston."}, models.SessionSnapshot{ID: id, HintsUsed: 1}, s.err
}

func (s *stubQuiz) Abandon(who models.AuthenticatedUser, id string) error {
	return s.err
}

func sessionRouter(h *SessionHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/sessions", h.Start)
	r.Get("/sessions/{id}", h.Get)
	r.Post("/sessions/{id}/answer", h.Answer)
	r.Post("/sessions/{id}/advance", h.Advance)
	r.Post("/sessions/{id}/hint", h.Hint)
	r.Post("/sessions/{id}/pause", h.Pause)
	r.Post("/sessions/{id}/resume", h.Resume)
	r.Delete("/sessions/{id}", h.Abandon)
	return r
}

var guestAna = models.AuthenticatedUser{ID: "guest:abc", DisplayName: "Guest-abc"}

func TestSessionHandler_Routes(t *testing.T) {
	quiz := &stubQuiz{}
	router := sessionRouter(NewSessionHandler(quiz))

	tests := []struct {
		method, target, body string
		wantStatus           int
	}{
		{http.MethodPost, "/sessions", `{"sport":"soccer","count":5}`, http.StatusCreated},
		{http.MethodPost, "/sessions", "", http.StatusCreated},
		{http.MethodGet, "/sessions/s1", "", http.StatusOK},
		{http.MethodPost, "/sessions/s1/answer", `{"option":"Celtics"}`, http.StatusOK},
		{http.MethodPost, "/sessions/s1/answer", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/sessions/s1/advance", "", http.StatusOK},
		{http.MethodPost, "/sessions/s1/hint", `{"kind":"clue"}`, http.StatusOK},
		{http.MethodPost, "/sessions/s1/pause", "", http.StatusOK},
		{http.MethodPost, "/sessions/s1/resume", "", http.StatusOK},
		{http.MethodDelete, "/sessions/s1", "", http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, withIdentity(req, guestAna))
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}

	if quiz.lastWho.ID != "guest:abc" || quiz.lastOpt != "Celtics" {
		t.Fatalf("identity or option not passed through: %+v %q", quiz.lastWho, quiz.lastOpt)
	}
}

func TestSessionHandler_HintResponse(t *testing.T) {
	router := sessionRouter(NewSessionHandler(&stubQuiz{}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/hint", strings.NewReader(`{"kind":"clue"}`))
	router.ServeHTTP(rr, withIdentity(req, guestAna))

	var body struct {
		Hint    models.Hint            `json:"hint"`
		Session models.SessionSnapshot `json:"session"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Hint.Text != "Think Boston." || body.Session.HintsUsed != 1 {
		t.Fatalf("unexpected hint response %+v", body)
	}
}

func TestSessionHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", session.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"not owner", session.ErrNotOwner, http.StatusForbidden, "FORBIDDEN"},
		{"wrong phase", session.ErrNotAwaitingAnswer, http.StatusConflict, "INVALID_STATE"},
		{"paused", session.ErrPaused, http.StatusConflict, "INVALID_STATE"},
		{"hints spent", session.ErrHintUnavailable, http.StatusConflict, "INVALID_STATE"},
		{"bad option", session.ErrInvalidOption, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"validation", &services.ValidationError{Fields: map[string]string{"count": "too many"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unavailable", &services.UnavailableError{Message: "off"}, http.StatusServiceUnavailable, "UNAVAILABLE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := sessionRouter(NewSessionHandler(&stubQuiz{err: tc.err}))
			req := httptest.NewRequest(http.MethodPost, "/sessions/s1/answer", strings.NewReader(`{"option":"x"}`))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, withIdentity(req, guestAna))

			var body models.ErrorResponse
			json.NewDecoder(rr.Body).Decode(&body)
			if rr.Code != tc.wantStatus || body.Error.Code != tc.wantCode {
				t.Fatalf("expected %d %s, got %d %s", tc.wantStatus, tc.wantCode, rr.Code, body.Error.Code)
			}
		})
	}
}
