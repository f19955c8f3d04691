package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
	"trivia-backend/internal/services"
)

const defaultRecentAchievements = 5

type ProfileService interface {
	Get(ctx context.Context, who models.AuthenticatedUser) (*models.Profile, error)
	UpdatePreferences(ctx context.Context, who models.AuthenticatedUser, req models.UpdatePreferencesRequest) (*models.Profile, error)
	Progress(ctx context.Context, who models.AuthenticatedUser, sport models.Sport) (models.SportProgress, error)
	Achievements(ctx context.Context, who models.AuthenticatedUser, scope models.AchievementScope) ([]models.Achievement, error)
	RecentAchievements(ctx context.Context, who models.AuthenticatedUser, count int) ([]models.Achievement, error)
	ResetAchievements(ctx context.Context, who models.AuthenticatedUser) ([]models.Achievement, error)
}

type ProfileHandler struct {
	profiles ProfileService
}

func NewProfileHandler(profiles ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	who, _ := middleware.GetIdentity(r.Context())
	profile, err := h.profiles.Get(r.Context(), who)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	who, _ := middleware.GetIdentity(r.Context())
	profile, err := h.profiles.UpdatePreferences(r.Context(), who, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile.Preferences)
}

func (h *ProfileHandler) Progress(w http.ResponseWriter, r *http.Request) {
	sport, err := services.ParseSport(chi.URLParam(r, "sport"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	who, _ := middleware.GetIdentity(r.Context())
	progress, err := h.profiles.Progress(r.Context(), who, sport)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// Achievements lists the catalog for ?sport=, "general", or everything when
// the parameter is absent.
func (h *ProfileHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	scope := models.AchievementScope(r.URL.Query().Get("sport"))
	if scope != "" && scope != models.ScopeGeneral && !models.Sport(scope).Valid() {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"sport": "Sport must be basketball, soccer or general"}, r))
		return
	}

	who, _ := middleware.GetIdentity(r.Context())
	list, err := h.profiles.Achievements(r.Context(), who, scope)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ProfileHandler) RecentAchievements(w http.ResponseWriter, r *http.Request) {
	count := defaultRecentAchievements
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"count": "Count must be a positive number"}, r))
			return
		}
		count = n
	}

	who, _ := middleware.GetIdentity(r.Context())
	list, err := h.profiles.RecentAchievements(r.Context(), who, count)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ProfileHandler) ResetAchievements(w http.ResponseWriter, r *http.Request) {
	who, _ := middleware.GetIdentity(r.Context())
	list, err := h.profiles.ResetAchievements(r.Context(), who)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
