package services

import (
	"math/rand"
	"sort"
	"time"

	"trivia-backend/internal/models"
)

const (
	preferredCategoryBonus = 5
	exactDifficultyBonus   = 3
	easierDifficultyBonus  = 1
	recentlyAnsweredMalus  = 10
	retryIncorrectBonus    = 2
	recentWindow           = 7 * 24 * time.Hour
)

type scoredQuestion struct {
	question models.Question
	score    int
}

// ScoreQuestion rates how well q fits the player's preferences and history.
func ScoreQuestion(q models.Question, prefs models.UserPreferences, now time.Time) int {
	score := 0

	for _, c := range prefs.Categories {
		if c == q.Category {
			score += preferredCategoryBonus
			break
		}
	}

	if q.Difficulty == prefs.Difficulty {
		score += exactDifficultyBonus
	} else if easier, ok := prefs.Difficulty.Easier(); ok && q.Difficulty == easier {
		score += easierDifficultyBonus
	}

	nowMs := now.UnixMilli()
	recent := false
	var latest *models.AnswerHistoryEntry
	for i := range prefs.QuestionHistory {
		h := &prefs.QuestionHistory[i]
		if h.QuestionID != q.ID {
			continue
		}
		if nowMs-h.Timestamp < recentWindow.Milliseconds() {
			recent = true
		}
		if latest == nil || h.Timestamp >= latest.Timestamp {
			latest = h
		}
	}
	if recent {
		score -= recentlyAnsweredMalus
	}
	if latest != nil && !latest.Correct {
		score += retryIncorrectBonus
	}

	return score
}

// Recommend picks count questions biased toward the player's preferences while
// keeping topics varied. The result order is shuffled with rng so it does not
// reveal the ranking.
func Recommend(questions []models.Question, prefs models.UserPreferences, count int, now time.Time, rng *rand.Rand) []models.Question {
	if count <= 0 || len(questions) == 0 {
		return []models.Question{}
	}
	if count > len(questions) {
		count = len(questions)
	}

	scored := make([]scoredQuestion, len(questions))
	for i, q := range questions {
		scored[i] = scoredQuestion{question: q, score: ScoreQuestion(q, prefs, now)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	perCategoryCap := categoryCap(count, prefs.Categories)
	taken := make([]bool, len(scored))
	perCategory := make(map[models.Category]int)
	selected := make([]models.Question, 0, count)

	for i, sq := range scored {
		if len(selected) >= count {
			break
		}
		if perCategory[sq.question.Category] >= perCategoryCap {
			continue
		}
		selected = append(selected, sq.question)
		perCategory[sq.question.Category]++
		taken[i] = true
	}

	for i, sq := range scored {
		if len(selected) >= count {
			break
		}
		if !taken[i] {
			selected = append(selected, sq.question)
		}
	}

	rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected
}

func categoryCap(count int, categories []models.Category) int {
	distinct := make(map[models.Category]struct{}, len(categories))
	for _, c := range categories {
		distinct[c] = struct{}{}
	}
	n := len(distinct)
	if n == 0 {
		n = 1
	}
	return (count+n-1)/n + 1
}
