package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-backend/internal/models"
)

// GuestProfileStore keeps guest profiles in Redis. Every save refreshes the
// TTL, so a device that keeps playing keeps its progress.
type GuestProfileStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuestProfileStore(client *redis.Client, ttl time.Duration) *GuestProfileStore {
	return &GuestProfileStore{client: client, ttl: ttl}
}

func guestProfileKey(key string) string {
	return "guest_profile:" + key
}

func (s *GuestProfileStore) Load(ctx context.Context, key string) (*models.Profile, error) {
	raw, err := s.client.Get(ctx, guestProfileKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode guest profile: %w", err)
	}
	return &p, nil
}

func (s *GuestProfileStore) Save(ctx context.Context, p *models.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode guest profile: %w", err)
	}
	return s.client.Set(ctx, guestProfileKey(p.UserKey), raw, s.ttl).Err()
}

func (s *GuestProfileStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, guestProfileKey(key)).Err()
}
