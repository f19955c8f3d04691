package session

import (
	"fmt"
	"math/rand"
	"strings"

	"trivia-backend/internal/models"
)

const generalHintWords = 3

// buildHint produces the hint text for q. eliminated lists options already
// ruled out by earlier elimination hints on the same question.
func buildHint(kind models.HintKind, q models.Question, eliminated map[string]bool, rng *rand.Rand) (models.Hint, string, error) {
	switch kind {
	case models.HintGeneral:
		words := strings.Fields(q.Text)
		if len(words) > generalHintWords {
			words = words[:generalHintWords]
		}
		return models.Hint{Kind: kind, Text: fmt.Sprintf("This question is about %s...", strings.Join(words, " "))}, "", nil

	case models.HintElimination:
		var candidates []string
		for _, opt := range q.Options {
			if opt != q.CorrectAnswer && !eliminated[opt] {
				candidates = append(candidates, opt)
			}
		}
		if len(candidates) == 0 {
			return models.Hint{}, "", ErrHintUnavailable
		}
		opt := candidates[rng.Intn(len(candidates))]
		return models.Hint{Kind: kind, Text: fmt.Sprintf("You can eliminate %q as a possible answer.", opt)}, opt, nil

	case models.HintClue:
		runes := []rune(q.CorrectAnswer)
		if len(runes) == 0 {
			return models.Hint{}, "", ErrHintUnavailable
		}
		ch := runes[rng.Intn(len(runes))]
		return models.Hint{Kind: kind, Text: fmt.Sprintf("The correct answer contains the letter %q.", string(ch))}, "", nil
	}
	return models.Hint{}, "", ErrInvalidHint
}
