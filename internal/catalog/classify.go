package catalog

import (
	"strings"

	"trivia-backend/internal/models"
)

const (
	easyMaxLen = 60
	hardMinLen = 120
)

// keyword rules are checked in order; the first match wins.
var categoryRules = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryTeams, []string{"team", "franchise"}},
	{models.CategoryChampionships, []string{"championship", "title", "finals"}},
	{models.CategoryDraft, []string{"draft", "picked"}},
	{models.CategoryRecords, []string{"record", "most"}},
	{models.CategoryHistory, []string{"history", "first"}},
	{models.CategoryStats, []string{"stats", "average", "points"}},
}

// Classify derives a category from the question text. Questions that match no
// rule are about players.
func Classify(text string) models.Category {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return models.CategoryPlayers
}

// RateDifficulty derives a difficulty from the question length.
func RateDifficulty(text string) models.Difficulty {
	n := len([]rune(text))
	switch {
	case n < easyMaxLen:
		return models.DifficultyEasy
	case n > hardMinLen:
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}

// Enrich fills in a missing category or difficulty.
func Enrich(q models.Question) models.Question {
	if q.Category == "" {
		q.Category = Classify(q.Text)
	}
	if q.Difficulty == "" {
		q.Difficulty = RateDifficulty(q.Text)
	}
	return q
}
