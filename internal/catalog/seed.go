package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"trivia-backend/internal/models"
)

//go:embed seed/questions.json
var seedJSON []byte

// SeedQuestions returns the bundled question set.
func SeedQuestions() ([]models.Question, error) {
	var questions []models.Question
	if err := json.Unmarshal(seedJSON, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode seed questions: %w", err)
	}
	return questions, nil
}

// Store is the persistent side of the catalog.
type Store interface {
	Count(ctx context.Context) (int, error)
	InsertMany(ctx context.Context, questions []models.Question) error
	List(ctx context.Context) ([]models.Question, error)
}

// Load seeds an empty store with the bundled questions, then builds the
// catalog from everything stored.
func Load(ctx context.Context, store Store) (*Catalog, error) {
	return load(ctx, store, SeedQuestions)
}

func load(ctx context.Context, store Store, seedFn func() ([]models.Question, error)) (*Catalog, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	if count == 0 {
		seed, err := seedFn()
		if err != nil {
			return nil, err
		}
		enriched := make([]models.Question, 0, len(seed))
		for _, q := range seed {
			enriched = append(enriched, Enrich(q))
		}
		// A bad seed must never reach the store, or every later boot fails.
		if _, err := New(enriched); err != nil {
			return nil, fmt.Errorf("invalid seed questions: %w", err)
		}
		if err := store.InsertMany(ctx, enriched); err != nil {
			return nil, fmt.Errorf("failed to seed questions: %w", err)
		}
		log.Printf("catalog: seeded %d questions", len(enriched))
	}

	questions, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return New(questions)
}
