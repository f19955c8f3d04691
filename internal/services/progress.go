package services

import (
	"time"

	"trivia-backend/internal/models"
)

const (
	dateLayout         = "2006-01-02"
	xpPerPoint         = 10
	levelThresholdGrow = 1.5
)

// Today formats t as the calendar date used for daily bookkeeping.
func Today(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// AddXP adds amount and settles any level-ups, so xp < XPToNextLevel holds
// afterwards.
func AddXP(p models.SportProgress, amount int) models.SportProgress {
	if amount <= 0 {
		return p
	}
	if p.XPToNextLevel <= 0 {
		p.XPToNextLevel = models.DefaultSportProgress().XPToNextLevel
	}
	if p.Level < 1 {
		p.Level = 1
	}

	p.XP += amount
	for p.XP >= p.XPToNextLevel {
		p.XP -= p.XPToNextLevel
		p.Level++
		p.XPToNextLevel = int(float64(p.XPToNextLevel) * levelThresholdGrow)
	}
	return p
}

// UpdateStreak applies the calendar-day streak rule: same day is a no-op,
// yesterday extends the streak, anything else restarts it at 1.
func UpdateStreak(p models.SportProgress, today string) models.SportProgress {
	if p.LastStreakDate != nil && *p.LastStreakDate == today {
		return p
	}

	if p.LastStreakDate != nil && isDayBefore(*p.LastStreakDate, today) {
		p.StreakDays++
	} else {
		p.StreakDays = 1
	}
	p.LastStreakDate = strPtr(today)
	return p
}

// CompleteDailyGoal marks the goal done for today and runs the streak rule.
func CompleteDailyGoal(p models.SportProgress, today string) models.SportProgress {
	p = UpdateStreak(p, today)
	p.DailyGoalCompleted = true
	p.DailyGoalProgress = p.DailyGoalTarget
	return p
}

// IncrementQuizzesCompleted counts a finished quiz toward the lifetime total
// and today's goal.
func IncrementQuizzesCompleted(p models.SportProgress, today string) models.SportProgress {
	p.QuizzesCompleted++

	next := p.DailyGoalProgress + 1
	if next > p.DailyGoalTarget {
		next = p.DailyGoalTarget
	}
	p.DailyGoalProgress = next

	if p.DailyGoalTarget > 0 && next >= p.DailyGoalTarget && !p.DailyGoalCompleted {
		p = CompleteDailyGoal(p, today)
	}
	return p
}

// ResetDailyGoal clears the daily goal once per calendar day. It is applied
// lazily when a profile is loaded.
func ResetDailyGoal(p models.SportProgress, today string) models.SportProgress {
	if p.LastQuizDate != nil && *p.LastQuizDate == today {
		return p
	}
	p.DailyGoalProgress = 0
	p.DailyGoalCompleted = false
	p.LastQuizDate = strPtr(today)
	return p
}

// ApplySession folds a finished quiz into the progress for its sport.
func ApplySession(p models.SportProgress, score int, today string) (models.SportProgress, int) {
	p = ResetDailyGoal(p, today)
	p = UpdateStreak(p, today)
	p = IncrementQuizzesCompleted(p, today)

	earned := score * xpPerPoint
	p = AddXP(p, earned)
	return p, earned
}

func isDayBefore(prev, today string) bool {
	t, err := time.Parse(dateLayout, today)
	if err != nil {
		return false
	}
	return t.AddDate(0, 0, -1).Format(dateLayout) == prev
}

func strPtr(s string) *string { return &s }
