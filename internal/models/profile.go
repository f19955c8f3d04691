package models

import "time"

type AnswerHistoryEntry struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	Timestamp  int64  `json:"timestamp"` // epoch ms
	Sport      Sport  `json:"sport"`
}

type SportProgress struct {
	Level              int     `json:"level"`
	XP                 int     `json:"xp"`
	XPToNextLevel      int     `json:"xp_to_next_level"`
	DailyGoalCompleted bool    `json:"daily_goal_completed"`
	DailyGoalProgress  int     `json:"daily_goal_progress"`
	DailyGoalTarget    int     `json:"daily_goal_target"`
	LastQuizDate       *string `json:"last_quiz_date"`   // YYYY-MM-DD
	LastStreakDate     *string `json:"last_streak_date"` // YYYY-MM-DD
	QuizzesCompleted   int     `json:"quizzes_completed"`
	StreakDays         int     `json:"streak_days"`
}

func DefaultSportProgress() SportProgress {
	return SportProgress{
		Level:           1,
		XP:              0,
		XPToNextLevel:   100,
		DailyGoalTarget: 3,
	}
}

type UserPreferences struct {
	Categories      []Category              `json:"categories"`
	Difficulty      Difficulty              `json:"difficulty"`
	QuestionHistory []AnswerHistoryEntry    `json:"question_history"`
	Progress        map[Sport]SportProgress `json:"progress"`
	PreferredSport  Sport                   `json:"preferred_sport"`
}

func DefaultPreferences() UserPreferences {
	progress := make(map[Sport]SportProgress, len(Sports))
	for _, sport := range Sports {
		progress[sport] = DefaultSportProgress()
	}
	return UserPreferences{
		Categories:      []Category{CategoryPlayers, CategoryTeams},
		Difficulty:      DifficultyMedium,
		QuestionHistory: []AnswerHistoryEntry{},
		Progress:        progress,
		PreferredSport:  SportBasketball,
	}
}

// ProgressFor returns the progress for sport, falling back to defaults for
// records written before the sport existed.
func (p UserPreferences) ProgressFor(sport Sport) SportProgress {
	if sp, ok := p.Progress[sport]; ok {
		return sp
	}
	return DefaultSportProgress()
}

// Profile is everything persisted for one player, authenticated or guest.
type Profile struct {
	UserKey       string          `json:"user_key"`
	DisplayName   string          `json:"display_name"`
	Preferences   UserPreferences `json:"preferences"`
	Achievements  []Achievement   `json:"achievements"`
	PerfectScores map[Sport]int   `json:"perfect_scores"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type UpdatePreferencesRequest struct {
	Categories     []Category `json:"categories"`
	Difficulty     Difficulty `json:"difficulty"`
	PreferredSport Sport      `json:"preferred_sport"`
}
