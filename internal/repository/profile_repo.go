package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trivia-backend/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepo keeps authenticated players' profiles in Postgres, one JSONB
// document per concern.
type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Load(ctx context.Context, key string) (*models.Profile, error) {
	p := &models.Profile{}
	var prefs, achievements, perfect []byte
	err := r.pool.QueryRow(ctx, `
		SELECT user_key, display_name, preferences, achievements, perfect_scores, created_at, updated_at
		FROM profiles WHERE user_key = $1`, key,
	).Scan(&p.UserKey, &p.DisplayName, &prefs, &achievements, &perfect, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if err := decodeProfile(p, prefs, achievements, perfect); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepo) Save(ctx context.Context, p *models.Profile) error {
	prefs, achievements, perfect, err := encodeProfile(p)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err = r.pool.Exec(ctx, `
		INSERT INTO profiles (user_key, display_name, preferences, achievements, perfect_scores, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_key) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			preferences = EXCLUDED.preferences,
			achievements = EXCLUDED.achievements,
			perfect_scores = EXCLUDED.perfect_scores,
			updated_at = EXCLUDED.updated_at
	`, p.UserKey, p.DisplayName, prefs, achievements, perfect, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *ProfileRepo) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM profiles WHERE user_key = $1", key)
	return err
}

func encodeProfile(p *models.Profile) (prefs, achievements, perfect []byte, err error) {
	if prefs, err = json.Marshal(p.Preferences); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	if achievements, err = json.Marshal(p.Achievements); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode achievements: %w", err)
	}
	if perfect, err = json.Marshal(p.PerfectScores); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode perfect scores: %w", err)
	}
	return prefs, achievements, perfect, nil
}

func decodeProfile(p *models.Profile, prefs, achievements, perfect []byte) error {
	if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
		return fmt.Errorf("failed to decode preferences: %w", err)
	}
	if err := json.Unmarshal(achievements, &p.Achievements); err != nil {
		return fmt.Errorf("failed to decode achievements: %w", err)
	}
	if len(perfect) > 0 {
		if err := json.Unmarshal(perfect, &p.PerfectScores); err != nil {
			return fmt.Errorf("failed to decode perfect scores: %w", err)
		}
	}
	return nil
}
