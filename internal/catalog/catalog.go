// Package catalog holds the validated, in-memory question pool.
package catalog

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"trivia-backend/internal/models"
)

const OptionCount = 4

var ErrEmptyCatalog = errors.New("catalog: no questions")

// InvalidQuestionError describes why a single question was rejected.
type InvalidQuestionError struct {
	ID     string
	Reason string
}

func (e *InvalidQuestionError) Error() string {
	if e.ID == "" {
		return "invalid question: " + e.Reason
	}
	return fmt.Sprintf("invalid question %s: %s", e.ID, e.Reason)
}

// Validate checks a single question. Category and difficulty may be empty;
// they are derived on load.
func Validate(q models.Question) error {
	invalid := func(reason string) error {
		return &InvalidQuestionError{ID: q.ID, Reason: reason}
	}

	if strings.TrimSpace(q.ID) == "" {
		return invalid("id is required")
	}
	if strings.TrimSpace(q.Text) == "" {
		return invalid("question text is required")
	}
	if !q.Sport.Valid() {
		return invalid(fmt.Sprintf("unknown sport %q", q.Sport))
	}
	if len(q.Options) != OptionCount {
		return invalid(fmt.Sprintf("expected %d options, got %d", OptionCount, len(q.Options)))
	}

	seen := make(map[string]struct{}, len(q.Options))
	hasCorrect := false
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return invalid("options must not be empty")
		}
		if _, dup := seen[opt]; dup {
			return invalid(fmt.Sprintf("duplicate option %q", opt))
		}
		seen[opt] = struct{}{}
		if opt == q.CorrectAnswer {
			hasCorrect = true
		}
	}
	if !hasCorrect {
		return invalid("correct answer is not one of the options")
	}

	if q.Category != "" && !q.Category.Valid() {
		return invalid(fmt.Sprintf("unknown category %q", q.Category))
	}
	if q.Difficulty != "" && !q.Difficulty.Valid() {
		return invalid(fmt.Sprintf("unknown difficulty %q", q.Difficulty))
	}
	return nil
}

type Catalog struct {
	mu      sync.RWMutex
	byID    map[string]models.Question
	bySport map[models.Sport][]models.Question
}

// New validates every question and builds a catalog. Any invalid question or
// duplicate id fails the whole load.
func New(questions []models.Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		byID:    make(map[string]models.Question, len(questions)),
		bySport: make(map[models.Sport][]models.Question),
	}

	var errs []error
	for _, q := range questions {
		if err := Validate(q); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.byID[q.ID]; dup {
			errs = append(errs, &InvalidQuestionError{ID: q.ID, Reason: "duplicate id"})
			continue
		}
		c.insert(Enrich(q))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (c *Catalog) insert(q models.Question) {
	c.byID[q.ID] = q
	c.bySport[q.Sport] = append(c.bySport[q.Sport], q)
}

// Add validates and inserts questions that arrive after startup. Invalid
// questions are returned, valid ones are kept.
func (c *Catalog) Add(questions ...models.Question) (added []models.Question, rejected []error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, q := range questions {
		if err := Validate(q); err != nil {
			rejected = append(rejected, err)
			continue
		}
		if _, dup := c.byID[q.ID]; dup {
			rejected = append(rejected, &InvalidQuestionError{ID: q.ID, Reason: "duplicate id"})
			continue
		}
		q = Enrich(q)
		c.insert(q)
		added = append(added, q)
	}
	return added, rejected
}

func (c *Catalog) Get(id string) (models.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.byID[id]
	return q, ok
}

// ForSport returns a copy of the pool for one sport.
func (c *Catalog) ForSport(sport models.Sport) []models.Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Question(nil), c.bySport[sport]...)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Random picks up to n questions of one sport in random order.
func (c *Catalog) Random(sport models.Sport, n int, rng *rand.Rand) []models.Question {
	pool := c.ForSport(sport)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n < len(pool) {
		pool = pool[:n]
	}
	return pool
}

// Filter returns questions of a sport, optionally restricted to one category.
func (c *Catalog) Filter(sport models.Sport, category models.Category) []models.Question {
	pool := c.ForSport(sport)
	if category == "" {
		return pool
	}
	out := pool[:0]
	for _, q := range pool {
		if q.Category == category {
			out = append(out, q)
		}
	}
	return out
}
