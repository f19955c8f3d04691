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
)

type stubProfiles struct {
	scope  models.AchievementScope
	count  int
	prefs  models.UpdatePreferencesRequest
	sport  models.Sport
	resets int
}

func (s *stubProfiles) Get(ctx context.Context, who models.AuthenticatedUser) (*models.Profile, error) {
	return &models.Profile{UserKey: who.ID, DisplayName: who.DisplayName, Preferences: models.DefaultPreferences()}, nil
}

func (s *stubProfiles) UpdatePreferences(ctx context.Context, who models.AuthenticatedUser, req models.UpdatePreferencesRequest) (*models.Profile, error) {
	s.prefs = req
	if len(req.Categories) == 0 {
		return nil, &services.ValidationError{Fields: map[string]string{"categories": "Pick at least one category"}}
	}
	p := models.DefaultPreferences()
	p.Categories = req.Categories
	return &models.Profile{UserKey: who.ID, Preferences: p}, nil
}

func (s *stubProfiles) Progress(ctx context.Context, who models.AuthenticatedUser, sport models.Sport) (models.SportProgress, error) {
	s.sport = sport
	return models.DefaultSportProgress(), nil
}

func (s *stubProfiles) Achievements(ctx context.Context, who models.AuthenticatedUser, scope models.AchievementScope) ([]models.Achievement, error) {
	s.scope = scope
	return []models.Achievement{}, nil
}

func (s *stubProfiles) RecentAchievements(ctx context.Context, who models.AuthenticatedUser, count int) ([]models.Achievement, error) {
	s.count = count
	return []models.Achievement{}, nil
}

func (s *stubProfiles) ResetAchievements(ctx context.Context, who models.AuthenticatedUser) ([]models.Achievement, error) {
	s.resets++
	return []models.Achievement{}, nil
}

func profileRouter(h *ProfileHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/profile", h.Get)
	r.Put("/profile/preferences", h.UpdatePreferences)
	r.Get("/profile/progress/{sport}", h.Progress)
	r.Get("/profile/achievements", h.Achievements)
	r.Get("/profile/achievements/recent", h.RecentAchievements)
	r.Post("/profile/achievements/reset", h.ResetAchievements)
	return r
}

func TestProfileHandler(t *testing.T) {
	profiles := &stubProfiles{}
	router := profileRouter(NewProfileHandler(profiles))

	tests := []struct {
		method, target, body string
		wantStatus           int
	}{
		{http.MethodGet, "/profile", "", http.StatusOK},
		{http.MethodPut, "/profile/preferences", `{"categories":["teams"],"difficulty":"hard"}`, http.StatusOK},
		{http.MethodPut, "/profile/preferences", `{"categories":[]}`, http.StatusBadRequest},
		{http.MethodGet, "/profile/progress/soccer", "", http.StatusOK},
		{http.MethodGet, "/profile/progress/hockey", "", http.StatusBadRequest},
		{http.MethodGet, "/profile/achievements?sport=general", "", http.StatusOK},
		{http.MethodGet, "/profile/achievements?sport=tennis", "", http.StatusBadRequest},
		{http.MethodGet, "/profile/achievements/recent?count=3", "", http.StatusOK},
		{http.MethodGet, "/profile/achievements/recent?count=zero", "", http.StatusBadRequest},
		{http.MethodPost, "/profile/achievements/reset", "", http.StatusOK},
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

	if profiles.sport != models.SportSoccer || profiles.scope != models.ScopeGeneral || profiles.count != 3 || profiles.resets != 1 {
		t.Fatalf("parameters not passed through: %+v", profiles)
	}
}

func TestProfileHandler_RecentDefaultsToFive(t *testing.T) {
	profiles := &stubProfiles{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile/achievements/recent", nil)
	profileRouter(NewProfileHandler(profiles)).ServeHTTP(rr, withIdentity(req, guestAna))
	if profiles.count != 5 {
		t.Fatalf("expected default count 5, got %d", profiles.count)
	}

	var list []models.Achievement
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
