package models

import "time"

// Queue names for domain events.
const (
	EventQuizCompleted       = "quiz.completed"
	EventAchievementUnlocked = "achievement.unlocked"
	EventScoreSubmitted      = "score.submitted"
)

type QuizCompletedEvent struct {
	UserKey     string    `json:"user_key"`
	DisplayName string    `json:"display_name"`
	Sport       Sport     `json:"sport"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	XPEarned    int       `json:"xp_earned"`
	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

type AchievementsUnlockedEvent struct {
	UserKey         string        `json:"user_key"`
	DisplayName     string        `json:"display_name"`
	IsAuthenticated bool          `json:"is_authenticated"`
	Achievements    []Achievement `json:"achievements"`
}

type ScoreSubmittedEvent struct {
	Username    string    `json:"username"`
	Sport       Sport     `json:"sport"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
