package models

import "time"

// AchievementScope is the sport an achievement belongs to, or "general".
type AchievementScope string

const ScopeGeneral AchievementScope = "general"

type Achievement struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Unlocked    bool             `json:"unlocked"`
	UnlockedAt  *time.Time       `json:"unlocked_at,omitempty"`
	Sport       AchievementScope `json:"sport"`
}

type ScoreEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type SubmitScoreRequest struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	Sport    Sport  `json:"sport"`
}
