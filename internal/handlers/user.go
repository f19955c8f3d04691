package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
	"trivia-backend/internal/services"
)

const (
	maxFullNameLen  = 100
	maxAvatarURLLen = 500
)

type userHandlerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, userID uuid.UUID) error
	GetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, defaultValue bool) (bool, error)
	SetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, enabled bool) error
}

// ProfileRemover drops a player's game profile along with the account.
type ProfileRemover interface {
	Delete(ctx context.Context, who models.AuthenticatedUser) error
}

type UserHandler struct {
	userRepo userHandlerRepo
	profiles ProfileRemover
}

func NewUserHandler(userRepo userHandlerRepo, profiles ProfileRemover) *UserHandler {
	return &UserHandler{userRepo: userRepo, profiles: profiles}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var update models.UpdateUserRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := make(map[string]string)
	update.FullName = strings.TrimSpace(update.FullName)
	if len([]rune(update.FullName)) > maxFullNameLen {
		fields["full_name"] = "Full name must be at most 100 characters"
	}
	if update.AvatarURL != nil && len(*update.AvatarURL) > maxAvatarURLLen {
		fields["avatar_url"] = "Avatar URL is too long"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	if update.FullName != "" {
		user.FullName = update.FullName
	}
	if update.AvatarURL != nil {
		user.AvatarURL = update.AvatarURL
	}

	if err := h.userRepo.Update(r.Context(), user); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update profile", r))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	hash, err := services.HashPassword(req.NewPassword)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Current password is incorrect", r))
		return
	}

	if err := h.userRepo.UpdatePassword(r.Context(), userID, hash); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update password", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.userRepo.Delete(r.Context(), userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete account", r))
		return
	}

	if h.profiles != nil {
		who, _ := middleware.GetIdentity(r.Context())
		if err := h.profiles.Delete(r.Context(), who); err != nil {
			log.Printf("user: failed to delete profile for %s: %v", userID, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

func (h *UserHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	streak, err := h.userRepo.GetNotificationSetting(r.Context(), userID, models.NotifyStreakReminder, true)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load notification settings", r))
		return
	}
	achievements, err := h.userRepo.GetNotificationSetting(r.Context(), userID, models.NotifyAchievements, true)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load notification settings", r))
		return
	}

	writeJSON(w, http.StatusOK, models.NotificationSettings{
		StreakReminder:    streak,
		AchievementEmails: achievements,
	})
}

func (h *UserHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StreakReminder    *bool `json:"streak_reminder"`
		AchievementEmails *bool `json:"achievement_emails"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	updates := []struct {
		key   string
		value *bool
	}{
		{models.NotifyStreakReminder, req.StreakReminder},
		{models.NotifyAchievements, req.AchievementEmails},
	}
	for _, u := range updates {
		if u.value == nil {
			continue
		}
		if err := h.userRepo.SetNotificationSetting(r.Context(), userID, u.key, *u.value); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update notification settings", r))
			return
		}
	}

	h.GetNotifications(w, r)
}
