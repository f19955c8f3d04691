package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"trivia-backend/internal/models"
)

const pgUndefinedTable = "42P01"

// ScoreRepo stores every leaderboard submission. Reads collapse the history
// to each username's best score.
type ScoreRepo struct {
	pool *pgxpool.Pool
}

func NewScoreRepo(pool *pgxpool.Pool) *ScoreRepo {
	return &ScoreRepo{pool: pool}
}

func (r *ScoreRepo) Insert(ctx context.Context, sport models.Sport, username string, score int) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO score_submissions (username, score, sport) VALUES ($1, $2, $3)",
		strings.TrimSpace(username), score, string(sport),
	)
	return err
}

// Top returns the best score per username for sport, highest first. A
// missing table reads as an empty board.
func (r *ScoreRepo) Top(ctx context.Context, sport models.Sport, limit int) ([]models.ScoreEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT username, MAX(score) AS best
		FROM score_submissions
		WHERE sport = $1
		GROUP BY username
		ORDER BY best DESC, username DESC
		LIMIT $2
	`, string(sport), limit)
	if err != nil {
		if isUndefinedTable(err) {
			return []models.ScoreEntry{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.ScoreEntry, 0)
	for rows.Next() {
		var e models.ScoreEntry
		if err := rows.Scan(&e.Username, &e.Score); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return []models.ScoreEntry{}, nil
		}
		return nil, err
	}
	return entries, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
