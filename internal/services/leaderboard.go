package services

import (
	"context"
	"log"
	"strings"
	"time"

	"trivia-backend/internal/models"
)

const (
	DefaultLeaderboardLimit = 10
	// cacheDepth is how many rows are mirrored into the sorted set, so later
	// submissions can be ranked without a round trip to Postgres.
	cacheDepth  = 500
	maxUsername = 40
)

type ScoreStore interface {
	Insert(ctx context.Context, sport models.Sport, username string, score int) error
	Top(ctx context.Context, sport models.Sport, limit int) ([]models.ScoreEntry, error)
}

type ScoreCache interface {
	Top(ctx context.Context, sport models.Sport, limit int) ([]models.ScoreEntry, bool, error)
	Record(ctx context.Context, sport models.Sport, username string, score int) error
	Fill(ctx context.Context, sport models.Sport, entries []models.ScoreEntry) error
}

type LeaderboardService struct {
	scores ScoreStore
	cache  ScoreCache
	events EventPublisher
	limit  int
}

// NewLeaderboardService reads through cache when it is non-nil.
func NewLeaderboardService(scores ScoreStore, cache ScoreCache, events EventPublisher, limit int) *LeaderboardService {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if events == nil {
		events = NopPublisher()
	}
	return &LeaderboardService{scores: scores, cache: cache, events: events, limit: limit}
}

// ParseSport reads a sport query value. Empty means basketball.
func ParseSport(raw string) (models.Sport, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return models.SportBasketball, nil
	}
	sport := models.Sport(raw)
	if !sport.Valid() {
		return "", fieldError("sport", "Sport must be basketball or soccer")
	}
	return sport, nil
}

// Top returns the best score per username for sport, highest first.
func (s *LeaderboardService) Top(ctx context.Context, sport models.Sport) ([]models.ScoreEntry, error) {
	if s.cache != nil {
		entries, ok, err := s.cache.Top(ctx, sport, s.limit)
		if err != nil {
			log.Printf("leaderboard: cache read failed for %s: %v", sport, err)
		} else if ok {
			return entries, nil
		}
	}

	depth := s.limit
	if s.cache != nil && depth < cacheDepth {
		depth = cacheDepth
	}
	entries, err := s.scores.Top(ctx, sport, depth)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Fill(ctx, sport, entries); err != nil {
			log.Printf("leaderboard: cache fill failed for %s: %v", sport, err)
		}
	}

	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	return entries, nil
}

func (s *LeaderboardService) Submit(ctx context.Context, req models.SubmitScoreRequest) error {
	username := strings.TrimSpace(req.Username)
	fields := make(map[string]string)
	if username == "" {
		fields["username"] = "Username is required"
	} else if len([]rune(username)) > maxUsername {
		fields["username"] = "Username is too long"
	}
	if req.Score < 0 {
		fields["score"] = "Score must not be negative"
	}
	sport, err := ParseSport(string(req.Sport))
	if err != nil {
		fields["sport"] = "Sport must be basketball or soccer"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	if err := s.scores.Insert(ctx, sport, username, req.Score); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Record(ctx, sport, username, req.Score); err != nil {
			log.Printf("leaderboard: cache update failed for %s: %v", sport, err)
		}
	}

	publishEvent(s.events, models.EventScoreSubmitted, models.ScoreSubmittedEvent{
		Username:    username,
		Sport:       sport,
		Score:       req.Score,
		SubmittedAt: time.Now().UTC(),
	})
	return nil
}

// RankOf returns the 1-based position of username on board, or 0.
func RankOf(board []models.ScoreEntry, username string) int {
	for i, e := range board {
		if e.Username == username {
			return i + 1
		}
	}
	return 0
}
