package services

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"trivia-backend/internal/models"
)

var recommendNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func makeQuestion(id string, cat models.Category, diff models.Difficulty) models.Question {
	return models.Question{
		ID:            id,
		Text:          "question " + id,
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: "a",
		Sport:         models.SportBasketball,
		Category:      cat,
		Difficulty:    diff,
	}
}

func TestScoreQuestion(t *testing.T) {
	prefs := models.DefaultPreferences() // players+teams, medium

	tests := []struct {
		name    string
		q       models.Question
		history []models.AnswerHistoryEntry
		want    int
	}{
		{"category and difficulty match", makeQuestion("q1", models.CategoryPlayers, models.DifficultyMedium), nil, 8},
		{"category and easier difficulty", makeQuestion("q1", models.CategoryTeams, models.DifficultyEasy), nil, 6},
		{"harder difficulty scores nothing", makeQuestion("q1", models.CategoryStats, models.DifficultyHard), nil, 0},
		{
			"recently answered correctly",
			makeQuestion("q1", models.CategoryPlayers, models.DifficultyMedium),
			[]models.AnswerHistoryEntry{{QuestionID: "q1", Correct: true, Timestamp: recommendNow.Add(-24 * time.Hour).UnixMilli()}},
			-2,
		},
		{
			"old incorrect answer earns retry bonus",
			makeQuestion("q1", models.CategoryStats, models.DifficultyHard),
			[]models.AnswerHistoryEntry{{QuestionID: "q1", Correct: false, Timestamp: recommendNow.Add(-30 * 24 * time.Hour).UnixMilli()}},
			2,
		},
		{
			"retry bonus uses most recent entry",
			makeQuestion("q1", models.CategoryStats, models.DifficultyHard),
			[]models.AnswerHistoryEntry{
				{QuestionID: "q1", Correct: false, Timestamp: recommendNow.Add(-40 * 24 * time.Hour).UnixMilli()},
				{QuestionID: "q1", Correct: true, Timestamp: recommendNow.Add(-20 * 24 * time.Hour).UnixMilli()},
			},
			0,
		},
		{
			"history of other questions ignored",
			makeQuestion("q1", models.CategoryStats, models.DifficultyHard),
			[]models.AnswerHistoryEntry{{QuestionID: "q2", Correct: false, Timestamp: recommendNow.UnixMilli()}},
			0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := prefs
			p.QuestionHistory = tc.history
			if got := ScoreQuestion(tc.q, p, recommendNow); got != tc.want {
				t.Fatalf("ScoreQuestion() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreQuestion_HardPreferrerGetsMediumBonus(t *testing.T) {
	prefs := models.DefaultPreferences()
	prefs.Difficulty = models.DifficultyHard

	if got := ScoreQuestion(makeQuestion("q", models.CategoryStats, models.DifficultyMedium), prefs, recommendNow); got != 1 {
		t.Fatalf("expected +1 for one step easier, got %d", got)
	}
	if got := ScoreQuestion(makeQuestion("q", models.CategoryStats, models.DifficultyEasy), prefs, recommendNow); got != 0 {
		t.Fatalf("expected nothing for two steps easier, got %d", got)
	}
}

func mixedPool() []models.Question {
	var pool []models.Question
	cats := []models.Category{models.CategoryPlayers, models.CategoryTeams, models.CategoryStats, models.CategoryHistory}
	for i := 0; i < 40; i++ {
		pool = append(pool, makeQuestion(fmt.Sprintf("q%02d", i), cats[i%len(cats)], models.DifficultyMedium))
	}
	return pool
}

func TestRecommend_LengthAndUniqueness(t *testing.T) {
	pool := mixedPool()
	prefs := models.DefaultPreferences()

	for _, count := range []int{1, 5, 10, 40} {
		got := Recommend(pool, prefs, count, recommendNow, rand.New(rand.NewSource(7)))
		if len(got) != count {
			t.Fatalf("count=%d: got %d questions", count, len(got))
		}
		seen := map[string]bool{}
		for _, q := range got {
			if seen[q.ID] {
				t.Fatalf("count=%d: duplicate %s", count, q.ID)
			}
			seen[q.ID] = true
		}
	}
}

func TestRecommend_CountLargerThanPool(t *testing.T) {
	pool := mixedPool()[:3]
	got := Recommend(pool, models.DefaultPreferences(), 10, recommendNow, rand.New(rand.NewSource(1)))
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
}

func TestRecommend_CapsPerCategory(t *testing.T) {
	var pool []models.Question
	for i := 0; i < 10; i++ {
		pool = append(pool,
			makeQuestion(fmt.Sprintf("p%d", i), models.CategoryPlayers, models.DifficultyMedium), // 8
			makeQuestion(fmt.Sprintf("t%d", i), models.CategoryTeams, models.DifficultyHard),     // 5
			makeQuestion(fmt.Sprintf("s%d", i), models.CategoryStats, models.DifficultyMedium),   // 3
		)
	}
	prefs := models.DefaultPreferences() // 2 categories -> cap ceil(10/2)+1 = 6

	got := Recommend(pool, prefs, 10, recommendNow, rand.New(rand.NewSource(3)))

	counts := map[models.Category]int{}
	for _, q := range got {
		counts[q.Category]++
	}
	if counts[models.CategoryPlayers] != 6 || counts[models.CategoryTeams] != 4 {
		t.Fatalf("expected players=6 teams=4 (cap then next best), got %v", counts)
	}
}

func TestRecommend_FillsPastCapWhenShort(t *testing.T) {
	var pool []models.Question
	for i := 0; i < 10; i++ {
		pool = append(pool, makeQuestion(fmt.Sprintf("p%d", i), models.CategoryPlayers, models.DifficultyMedium))
	}
	prefs := models.DefaultPreferences()

	got := Recommend(pool, prefs, 10, recommendNow, rand.New(rand.NewSource(3)))
	if len(got) != 10 {
		t.Fatalf("expected fill pass to reach 10, got %d", len(got))
	}
}

func TestRecommend_EmptyCategoriesDoesNotPanic(t *testing.T) {
	prefs := models.DefaultPreferences()
	prefs.Categories = nil

	got := Recommend(mixedPool(), prefs, 10, recommendNow, rand.New(rand.NewSource(3)))
	if len(got) != 10 {
		t.Fatalf("expected 10, got %d", len(got))
	}
}

func TestRecommend_AvoidsRecentlyAnswered(t *testing.T) {
	pool := mixedPool()
	prefs := models.DefaultPreferences()
	for _, q := range pool {
		if q.Category == models.CategoryPlayers {
			prefs.QuestionHistory = append(prefs.QuestionHistory, models.AnswerHistoryEntry{
				QuestionID: q.ID, Correct: true, Timestamp: recommendNow.Add(-time.Hour).UnixMilli(),
			})
		}
	}

	got := Recommend(pool, prefs, 10, recommendNow, rand.New(rand.NewSource(3)))
	for _, q := range got {
		if q.Category == models.CategoryPlayers {
			t.Fatalf("recently answered question %s should rank below fresh ones", q.ID)
		}
	}
}

func TestRecommend_DeterministicWithSeed(t *testing.T) {
	pool := mixedPool()
	prefs := models.DefaultPreferences()

	a := Recommend(pool, prefs, 10, recommendNow, rand.New(rand.NewSource(42)))
	b := Recommend(pool, prefs, 10, recommendNow, rand.New(rand.NewSource(42)))
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("same seed produced different order at %d", i)
		}
	}

	ids := func(qs []models.Question) []string {
		out := make([]string, len(qs))
		for i, q := range qs {
			out[i] = q.ID
		}
		sort.Strings(out)
		return out
	}
	c := Recommend(pool, prefs, 10, recommendNow, rand.New(rand.NewSource(99)))
	ia, ic := ids(a), ids(c)
	for i := range ia {
		if ia[i] != ic[i] {
			t.Fatalf("different seeds must select the same set, only order may differ")
		}
	}
}
