// Package sqlite is a single-file profile store for the offline client.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trivia-backend/internal/models"
	"trivia-backend/internal/repository"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(path string) (*ProfileStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "trivia.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &ProfileStore{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *ProfileStore) Close() error {
	return s.db.Close()
}

func (s *ProfileStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_key TEXT PRIMARY KEY,
			profile_json TEXT NOT NULL,
			created_at_unix INTEGER NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scores (
			sport TEXT NOT NULL,
			username TEXT NOT NULL,
			score INTEGER NOT NULL,
			submitted_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_sport_score ON scores(sport, score DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProfileStore) Load(ctx context.Context, key string) (*models.Profile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT profile_json FROM profiles WHERE user_key = ?`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProfileNotFound
		}
		return nil, err
	}

	var p models.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

func (s *ProfileStore) Save(ctx context.Context, p *models.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_key, profile_json, created_at_unix, updated_at_unix)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			profile_json = excluded.profile_json,
			updated_at_unix = excluded.updated_at_unix
	`, p.UserKey, string(raw), p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	return err
}

func (s *ProfileStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_key = ?`, key)
	return err
}

// InsertScore records a finished local game.
func (s *ProfileStore) InsertScore(ctx context.Context, sport models.Sport, username string, score int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (sport, username, score, submitted_at_unix) VALUES (?, ?, ?, ?)`,
		string(sport), username, score, time.Now().Unix(),
	)
	return err
}

// TopScores returns the best local score per name, highest first.
func (s *ProfileStore) TopScores(ctx context.Context, sport models.Sport, limit int) ([]models.ScoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, MAX(score) AS best
		FROM scores
		WHERE sport = ?
		GROUP BY username
		ORDER BY best DESC, username DESC
		LIMIT ?
	`, string(sport), limit)
	if err != nil {
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
	return entries, rows.Err()
}
