package services

import (
	"sort"
	"time"

	"trivia-backend/internal/models"
)

const (
	fastAnswerThreshold = 5 * time.Second
	fastQuizThreshold   = 2 * time.Minute
	threePerfectTally   = 3
	sportStreakTarget   = 7
)

var (
	streakMilestones = []milestone{{3, "streak_3"}, {5, "streak_5"}, {10, "streak_10"}}
	quizMilestones   = []milestone{{5, "five"}, {10, "ten"}, {20, "twenty"}}
	levelMilestones  = []milestone{{5, "reach_level_5"}, {10, "reach_level_10"}, {25, "reach_level_25"}}
	dayMilestones    = []milestone{{3, "streak_3_days"}, {7, "streak_7_days"}, {30, "streak_30_days"}}
)

type milestone struct {
	threshold int
	id        string
}

// SessionOutcome is what the evaluator needs to know about a finished quiz.
// Counters are the totals after the session has been applied.
type SessionOutcome struct {
	models.SessionResult
	TotalQuizzes int
	SportQuizzes int
	PerfectTally int
}

// DefaultAchievements returns the full locked catalog.
func DefaultAchievements() []models.Achievement {
	list := []models.Achievement{
		{ID: "first_quiz", Title: "First Steps", Description: "Complete your first quiz", Icon: "🎮"},
		{ID: "perfect_score", Title: "Perfect Score", Description: "Get all questions correct in a quiz", Icon: "💯"},
		{ID: "streak_3", Title: "On Fire", Description: "Get a streak of 3 correct answers", Icon: "🔥"},
		{ID: "streak_5", Title: "Unstoppable", Description: "Get a streak of 5 correct answers", Icon: "⚡"},
		{ID: "streak_10", Title: "Legendary", Description: "Get a streak of 10 correct answers", Icon: "👑"},
		{ID: "fast_answer", Title: "Quick Thinker", Description: "Answer a question in less than 5 seconds", Icon: "⏱️"},
		{ID: "five_quizzes", Title: "Getting Started", Description: "Complete 5 quizzes", Icon: "🏁"},
		{ID: "ten_quizzes", Title: "Dedicated", Description: "Complete 10 quizzes", Icon: "🏆"},
		{ID: "twenty_quizzes", Title: "Trivia Master", Description: "Complete 20 quizzes", Icon: "🎓"},
		{ID: "reach_level_5", Title: "Rising Star", Description: "Reach level 5 in any sport", Icon: "⭐"},
		{ID: "reach_level_10", Title: "Seasoned Pro", Description: "Reach level 10 in any sport", Icon: "🌟"},
		{ID: "reach_level_25", Title: "Living Legend", Description: "Reach level 25 in any sport", Icon: "🏅"},
		{ID: "streak_3_days", Title: "Warming Up", Description: "Play 3 days in a row", Icon: "📅"},
		{ID: "streak_7_days", Title: "Weekly Regular", Description: "Play 7 days in a row", Icon: "🗓️"},
		{ID: "streak_30_days", Title: "Season Ticket", Description: "Play 30 days in a row", Icon: "🎟️"},

		{ID: "basketball_leaderboard_top3", Title: "All-Star", Description: "Reach the top 3 on the basketball leaderboard", Icon: "🏀🥉", Sport: "basketball"},
		{ID: "basketball_leaderboard_top1", Title: "MVP", Description: "Reach the #1 spot on the basketball leaderboard", Icon: "🏀🏆", Sport: "basketball"},
		{ID: "five_basketball_quizzes", Title: "Rookie", Description: "Complete 5 basketball quizzes", Icon: "🏀🔄", Sport: "basketball"},
		{ID: "ten_basketball_quizzes", Title: "Veteran", Description: "Complete 10 basketball quizzes", Icon: "🏀⭐", Sport: "basketball"},
		{ID: "twenty_basketball_quizzes", Title: "Hall of Fame", Description: "Complete 20 basketball quizzes", Icon: "🏀👑", Sport: "basketball"},
		{ID: "basketball_perfect_score", Title: "Nothing But Net", Description: "Get a perfect score on a basketball quiz", Icon: "🏀💯", Sport: "basketball"},
		{ID: "basketball_streak_7", Title: "Hot Hand", Description: "Get a streak of 7 correct answers in basketball", Icon: "🏀🔥", Sport: "basketball"},
		{ID: "basketball_fast_quiz", Title: "Fast Break", Description: "Complete a basketball quiz in under 2 minutes", Icon: "🏀⏱️", Sport: "basketball"},
		{ID: "basketball_three_perfect", Title: "Triple Double", Description: "Get 3 perfect scores on basketball quizzes", Icon: "🏀🏆🏆🏆", Sport: "basketball"},

		{ID: "soccer_leaderboard_top3", Title: "World Class", Description: "Reach the top 3 on the soccer leaderboard", Icon: "⚽🥉", Sport: "soccer"},
		{ID: "soccer_leaderboard_top1", Title: "Golden Ball", Description: "Reach the #1 spot on the soccer leaderboard", Icon: "⚽🏆", Sport: "soccer"},
		{ID: "five_soccer_quizzes", Title: "Academy Player", Description: "Complete 5 soccer quizzes", Icon: "⚽🔄", Sport: "soccer"},
		{ID: "ten_soccer_quizzes", Title: "Professional", Description: "Complete 10 soccer quizzes", Icon: "⚽⭐", Sport: "soccer"},
		{ID: "twenty_soccer_quizzes", Title: "Legend", Description: "Complete 20 soccer quizzes", Icon: "⚽👑", Sport: "soccer"},
		{ID: "soccer_perfect_score", Title: "Top Corner", Description: "Get a perfect score on a soccer quiz", Icon: "⚽💯", Sport: "soccer"},
		{ID: "soccer_streak_7", Title: "Goal Streak", Description: "Get a streak of 7 correct answers in soccer", Icon: "⚽🔥", Sport: "soccer"},
		{ID: "soccer_fast_quiz", Title: "Counter Attack", Description: "Complete a soccer quiz in under 2 minutes", Icon: "⚽⏱️", Sport: "soccer"},
		{ID: "soccer_three_perfect", Title: "Golden Boot", Description: "Get 3 perfect scores on soccer quizzes", Icon: "⚽🏆🏆🏆", Sport: "soccer"},
	}
	for i := range list {
		if list[i].Sport == "" {
			list[i].Sport = models.ScopeGeneral
		}
	}
	return list
}

// UnlockedSet indexes the unlocked ids of list.
func UnlockedSet(list []models.Achievement) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, a := range list {
		if a.Unlocked {
			set[a.ID] = true
		}
	}
	return set
}

type unlockCollector struct {
	unlocked map[string]bool
	ids      []string
}

func (c *unlockCollector) check(cond bool, id string) {
	if cond && !c.unlocked[id] {
		c.unlocked[id] = true
		c.ids = append(c.ids, id)
	}
}

func newCollector(unlocked map[string]bool) *unlockCollector {
	copied := make(map[string]bool, len(unlocked))
	for k, v := range unlocked {
		copied[k] = v
	}
	return &unlockCollector{unlocked: copied}
}

// EvaluateSession returns the ids a finished quiz newly unlocks.
func EvaluateSession(o SessionOutcome, unlocked map[string]bool) []string {
	c := newCollector(unlocked)
	sport := string(o.Sport)

	c.check(true, "first_quiz")
	c.check(o.Perfect(), "perfect_score")
	for _, m := range streakMilestones {
		c.check(o.MaxStreak >= m.threshold, m.id)
	}
	c.check(o.AnsweredCount > 0 && o.FastestAnswer < fastAnswerThreshold, "fast_answer")
	for _, m := range quizMilestones {
		c.check(o.TotalQuizzes >= m.threshold, m.id+"_quizzes")
	}

	if !o.Sport.Valid() {
		return c.ids
	}
	for _, m := range quizMilestones {
		c.check(o.SportQuizzes >= m.threshold, m.id+"_"+sport+"_quizzes")
	}
	c.check(o.Perfect(), sport+"_perfect_score")
	c.check(o.MaxStreak >= sportStreakTarget, sport+"_streak_7")
	c.check(o.Total > 0 && o.Duration < fastQuizThreshold, sport+"_fast_quiz")
	c.check(o.PerfectTally >= threePerfectTally, sport+"_three_perfect")

	return c.ids
}

// EvaluateLeaderboard returns the leaderboard ids a 1-based rank unlocks. A
// rank of zero or less means the player is not on the board.
func EvaluateLeaderboard(sport models.Sport, rank int, unlocked map[string]bool) []string {
	c := newCollector(unlocked)
	if rank < 1 || !sport.Valid() {
		return nil
	}
	c.check(rank == 1, string(sport)+"_leaderboard_top1")
	c.check(rank <= 3, string(sport)+"_leaderboard_top3")
	return c.ids
}

// EvaluateProgress returns level and day-streak ids unlocked by p.
func EvaluateProgress(p models.SportProgress, unlocked map[string]bool) []string {
	c := newCollector(unlocked)
	for _, m := range levelMilestones {
		c.check(p.Level >= m.threshold, m.id)
	}
	for _, m := range dayMilestones {
		c.check(p.StreakDays >= m.threshold, m.id)
	}
	return c.ids
}

// Unlock marks ids as unlocked at now. Already unlocked entries keep their
// original timestamp. It returns the updated list and the ids that changed.
func Unlock(list []models.Achievement, ids []string, now time.Time) ([]models.Achievement, []models.Achievement) {
	if len(ids) == 0 {
		return list, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	out := make([]models.Achievement, len(list))
	copy(out, list)
	var changed []models.Achievement
	for i := range out {
		if !want[out[i].ID] || out[i].Unlocked {
			continue
		}
		at := now
		out[i].Unlocked = true
		out[i].UnlockedAt = &at
		changed = append(changed, out[i])
	}
	return out, changed
}

// MergeCatalog adds catalog entries missing from a stored list, so profiles
// created before an achievement existed still see it.
func MergeCatalog(list []models.Achievement) []models.Achievement {
	have := make(map[string]bool, len(list))
	for _, a := range list {
		have[a.ID] = true
	}
	out := append([]models.Achievement(nil), list...)
	for _, a := range DefaultAchievements() {
		if !have[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// RecentAchievements returns up to count unlocked achievements, newest first.
func RecentAchievements(list []models.Achievement, count int) []models.Achievement {
	var unlocked []models.Achievement
	for _, a := range list {
		if a.Unlocked && a.UnlockedAt != nil {
			unlocked = append(unlocked, a)
		}
	}
	sort.SliceStable(unlocked, func(i, j int) bool {
		return unlocked[i].UnlockedAt.After(*unlocked[j].UnlockedAt)
	})
	if count >= 0 && len(unlocked) > count {
		unlocked = unlocked[:count]
	}
	if unlocked == nil {
		return []models.Achievement{}
	}
	return unlocked
}

// AchievementsFor filters list by scope. Sport scopes list unlocked entries
// first; the general scope keeps catalog order.
func AchievementsFor(list []models.Achievement, scope models.AchievementScope) []models.Achievement {
	var unlocked, locked []models.Achievement
	for _, a := range list {
		if a.Sport != scope {
			continue
		}
		if a.Unlocked && scope != models.ScopeGeneral {
			unlocked = append(unlocked, a)
		} else {
			locked = append(locked, a)
		}
	}
	out := append(unlocked, locked...)
	if out == nil {
		return []models.Achievement{}
	}
	return out
}
