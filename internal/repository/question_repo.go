package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trivia-backend/internal/models"
)

// QuestionRepo persists the question catalog. Rows are immutable once
// written; duplicates by id are ignored.
type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

func (r *QuestionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM questions").Scan(&n)
	return n, err
}

func (r *QuestionRepo) InsertMany(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(`INSERT INTO questions (id, text, options, correct_answer, sport, category, difficulty)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			q.ID, q.Text, q.Options, q.CorrectAnswer, string(q.Sport), string(q.Category), string(q.Difficulty),
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range questions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert question %s: %w", questions[i].ID, err)
		}
	}
	return nil
}

func (r *QuestionRepo) List(ctx context.Context) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, text, options, correct_answer, sport, category, difficulty
		FROM questions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]models.Question, 0)
	for rows.Next() {
		var q models.Question
		var sport, category, difficulty string
		if err := rows.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectAnswer, &sport, &category, &difficulty); err != nil {
			return nil, err
		}
		q.Sport = models.Sport(sport)
		q.Category = models.Category(category)
		q.Difficulty = models.Difficulty(difficulty)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
