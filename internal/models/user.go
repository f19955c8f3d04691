package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	AvatarURL    *string    `json:"avatar_url"`
	IsVerified   bool       `json:"is_verified"`
	IsActive     bool       `json:"is_active"`
	AuthProvider string     `json:"auth_provider"`
	GoogleID     *string    `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// AuthenticatedUser is the provider-agnostic identity the game sees. Guests
// carry a device-scoped ID and IsAuthenticated=false.
type AuthenticatedUser struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	ExpiresIn    int               `json:"expires_in"`
	User         AuthenticatedUser `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UpdateUserRequest struct {
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

// Notification preference keys stored in user_settings.notifications_json.
const (
	NotifyStreakReminder = "streak_reminder"
	NotifyAchievements   = "achievement_emails"
	LastStreakReminderAt = "last_streak_reminder_at"
)

type NotificationSettings struct {
	StreakReminder    bool `json:"streak_reminder"`
	AchievementEmails bool `json:"achievement_emails"`
}
