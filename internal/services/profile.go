package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trivia-backend/internal/models"
	"trivia-backend/internal/repository"
)

// ProfileStore loads and saves whole profiles. Load returns
// repository.ErrProfileNotFound for an unknown key.
type ProfileStore interface {
	Load(ctx context.Context, key string) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
	Delete(ctx context.Context, key string) error
}

// SessionApplied is what a finished quiz changed on the profile.
type SessionApplied struct {
	Progress models.SportProgress
	XPEarned int
	Unlocked []models.Achievement
}

// ProfileService owns every read-modify-write of a profile. Writes for one
// player are serialized so concurrent hooks cannot lose updates.
type ProfileService struct {
	users    ProfileStore
	guests   ProfileStore
	events   EventPublisher
	notifier Notifier
	locks    keyedMutex
	now      func() time.Time
}

// NewProfileService stores authenticated players in users and guests in
// guests. The two may be the same store. events and notifier may be nil.
func NewProfileService(users, guests ProfileStore, events EventPublisher, notifier Notifier) *ProfileService {
	if events == nil {
		events = NopPublisher()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ProfileService{
		users:    users,
		guests:   guests,
		events:   events,
		notifier: notifier,
		locks:    keyedMutex{locks: make(map[string]*lockEntry)},
		now:      time.Now,
	}
}

func (s *ProfileService) storeFor(who models.AuthenticatedUser) ProfileStore {
	if who.IsAuthenticated {
		return s.users
	}
	return s.guests
}

// Get returns the player's profile, creating it with defaults on first use.
func (s *ProfileService) Get(ctx context.Context, who models.AuthenticatedUser) (*models.Profile, error) {
	return s.mutate(ctx, who, func(p *models.Profile) (bool, error) { return false, nil })
}

func (s *ProfileService) UpdatePreferences(ctx context.Context, who models.AuthenticatedUser, req models.UpdatePreferencesRequest) (*models.Profile, error) {
	fields := make(map[string]string)
	if len(req.Categories) == 0 {
		fields["categories"] = "At least one category is required"
	}
	for _, c := range req.Categories {
		if !c.Valid() {
			fields["categories"] = fmt.Sprintf("Unknown category %q", c)
			break
		}
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		fields["difficulty"] = "Difficulty must be easy, medium or hard"
	}
	if req.PreferredSport != "" && !req.PreferredSport.Valid() {
		fields["preferred_sport"] = "Sport must be basketball or soccer"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return s.mutate(ctx, who, func(p *models.Profile) (bool, error) {
		p.Preferences.Categories = dedupeCategories(req.Categories)
		if req.Difficulty != "" {
			p.Preferences.Difficulty = req.Difficulty
		}
		if req.PreferredSport != "" {
			p.Preferences.PreferredSport = req.PreferredSport
		}
		return true, nil
	})
}

func (s *ProfileService) Progress(ctx context.Context, who models.AuthenticatedUser, sport models.Sport) (models.SportProgress, error) {
	p, err := s.Get(ctx, who)
	if err != nil {
		return models.SportProgress{}, err
	}
	return p.Preferences.ProgressFor(sport), nil
}

func (s *ProfileService) Achievements(ctx context.Context, who models.AuthenticatedUser, scope models.AchievementScope) ([]models.Achievement, error) {
	p, err := s.Get(ctx, who)
	if err != nil {
		return nil, err
	}
	if scope == "" {
		return p.Achievements, nil
	}
	return AchievementsFor(p.Achievements, scope), nil
}

func (s *ProfileService) RecentAchievements(ctx context.Context, who models.AuthenticatedUser, count int) ([]models.Achievement, error) {
	p, err := s.Get(ctx, who)
	if err != nil {
		return nil, err
	}
	return RecentAchievements(p.Achievements, count), nil
}

// ResetAchievements re-locks every achievement and clears perfect tallies.
// It is the only way an achievement becomes locked again.
func (s *ProfileService) ResetAchievements(ctx context.Context, who models.AuthenticatedUser) ([]models.Achievement, error) {
	p, err := s.mutate(ctx, who, func(p *models.Profile) (bool, error) {
		p.Achievements = DefaultAchievements()
		p.PerfectScores = make(map[models.Sport]int)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return p.Achievements, nil
}

// UnlockAchievements unlocks ids and returns the ones that were newly
// unlocked. Unlocking twice is a no-op.
func (s *ProfileService) UnlockAchievements(ctx context.Context, who models.AuthenticatedUser, ids []string) ([]models.Achievement, error) {
	var changed []models.Achievement
	_, err := s.mutate(ctx, who, func(p *models.Profile) (bool, error) {
		p.Achievements, changed = Unlock(p.Achievements, ids, s.now())
		return len(changed) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	s.announce(who, changed)
	return changed, nil
}

// AwardLeaderboard unlocks the sport's leaderboard achievements for the
// player's position on board, matched by display name.
func (s *ProfileService) AwardLeaderboard(ctx context.Context, who models.AuthenticatedUser, sport models.Sport, board []models.ScoreEntry) ([]models.Achievement, error) {
	rank := RankOf(board, who.DisplayName)
	if rank == 0 {
		return nil, nil
	}
	p, err := s.Get(ctx, who)
	if err != nil {
		return nil, err
	}
	ids := EvaluateLeaderboard(sport, rank, UnlockedSet(p.Achievements))
	if len(ids) == 0 {
		return nil, nil
	}
	return s.UnlockAchievements(ctx, who, ids)
}

// RecordAnswer appends one entry to the answer history.
func (s *ProfileService) RecordAnswer(ctx context.Context, who models.AuthenticatedUser, answer models.AnswerResult) error {
	_, err := s.mutate(ctx, who, func(p *models.Profile) (bool, error) {
		p.Preferences.QuestionHistory = append(p.Preferences.QuestionHistory, models.AnswerHistoryEntry{
			QuestionID: answer.QuestionID,
			Correct:    answer.Correct,
			Timestamp:  s.now().UnixMilli(),
			Sport:      answer.Sport,
		})
		return true, nil
	})
	return err
}

// ApplySessionResult folds a finished quiz into progress, perfect tallies and
// achievements in one write.
func (s *ProfileService) ApplySessionResult(ctx context.Context, who models.AuthenticatedUser, result models.SessionResult) (*SessionApplied, error) {
	if !result.Sport.Valid() {
		return nil, fieldError("sport", "Sport must be basketball or soccer")
	}

	applied := &SessionApplied{}
	_, err := s.mutate(ctx, who, func(p *models.Profile) (bool, error) {
		now := s.now()
		today := Today(now)

		progress, earned := ApplySession(p.Preferences.ProgressFor(result.Sport), result.Score, today)
		p.Preferences.Progress[result.Sport] = progress

		if result.Perfect() {
			p.PerfectScores[result.Sport]++
		}

		total := 0
		for _, sp := range p.Preferences.Progress {
			total += sp.QuizzesCompleted
		}

		unlocked := UnlockedSet(p.Achievements)
		ids := EvaluateSession(SessionOutcome{
			SessionResult: result,
			TotalQuizzes:  total,
			SportQuizzes:  progress.QuizzesCompleted,
			PerfectTally:  p.PerfectScores[result.Sport],
		}, unlocked)
		for _, id := range ids {
			unlocked[id] = true
		}
		ids = append(ids, EvaluateProgress(progress, unlocked)...)

		p.Achievements, applied.Unlocked = Unlock(p.Achievements, ids, now)
		applied.Progress = progress
		applied.XPEarned = earned
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.events, models.EventQuizCompleted, models.QuizCompletedEvent{
		UserKey:     who.ID,
		DisplayName: who.DisplayName,
		Sport:       result.Sport,
		Score:       result.Score,
		Total:       result.Total,
		XPEarned:    applied.XPEarned,
		DurationMs:  result.DurationMs,
		CompletedAt: s.now().UTC(),
	})
	s.announce(who, applied.Unlocked)
	return applied, nil
}

// Delete removes the stored profile.
func (s *ProfileService) Delete(ctx context.Context, who models.AuthenticatedUser) error {
	unlock := s.locks.Lock(who.ID)
	defer unlock()
	return s.storeFor(who).Delete(ctx, who.ID)
}

func (s *ProfileService) announce(who models.AuthenticatedUser, unlocked []models.Achievement) {
	if len(unlocked) == 0 {
		return
	}
	s.notifier.Notify(context.Background(), who.ID, models.WSMessage{
		Type:    models.WSAchievementUnlocked,
		Payload: models.AchievementUnlockedEvent{Achievements: unlocked},
	})
	publishEvent(s.events, models.EventAchievementUnlocked, models.AchievementsUnlockedEvent{
		UserKey:         who.ID,
		DisplayName:     who.DisplayName,
		IsAuthenticated: who.IsAuthenticated,
		Achievements:    unlocked,
	})
}

// mutate loads (or creates) the profile under the player's lock, applies
// lazy daily resets, runs fn and saves when anything changed.
func (s *ProfileService) mutate(ctx context.Context, who models.AuthenticatedUser, fn func(p *models.Profile) (bool, error)) (*models.Profile, error) {
	if who.ID == "" {
		return nil, &UnauthorizedError{Message: "Identity required"}
	}

	unlock := s.locks.Lock(who.ID)
	defer unlock()

	store := s.storeFor(who)
	p, err := store.Load(ctx, who.ID)
	dirty := false
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
		p = newProfile(who)
		dirty = true
	case err != nil:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if normalizeProfile(p, who, Today(s.now())) {
		dirty = true
	}

	changed, err := fn(p)
	if err != nil {
		return nil, err
	}
	if changed || dirty {
		if err := store.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to save profile: %w", err)
		}
	}
	return p, nil
}

func newProfile(who models.AuthenticatedUser) *models.Profile {
	return &models.Profile{
		UserKey:       who.ID,
		DisplayName:   who.DisplayName,
		Preferences:   models.DefaultPreferences(),
		Achievements:  DefaultAchievements(),
		PerfectScores: make(map[models.Sport]int),
	}
}

// normalizeProfile fills gaps left by older records and runs the lazy daily
// goal reset. It reports whether p changed.
func normalizeProfile(p *models.Profile, who models.AuthenticatedUser, today string) bool {
	changed := false
	if p.DisplayName == "" && who.DisplayName != "" {
		p.DisplayName = who.DisplayName
		changed = true
	}
	if p.Preferences.Progress == nil {
		p.Preferences.Progress = make(map[models.Sport]models.SportProgress)
	}
	if len(p.Preferences.Categories) == 0 {
		p.Preferences.Categories = models.DefaultPreferences().Categories
		changed = true
	}
	if !p.Preferences.Difficulty.Valid() {
		p.Preferences.Difficulty = models.DifficultyMedium
		changed = true
	}
	if !p.Preferences.PreferredSport.Valid() {
		p.Preferences.PreferredSport = models.SportBasketball
		changed = true
	}
	if p.Preferences.QuestionHistory == nil {
		p.Preferences.QuestionHistory = []models.AnswerHistoryEntry{}
	}
	if p.PerfectScores == nil {
		p.PerfectScores = make(map[models.Sport]int)
	}
	if merged := MergeCatalog(p.Achievements); len(merged) != len(p.Achievements) {
		p.Achievements = merged
		changed = true
	}

	for _, sport := range models.Sports {
		before := p.Preferences.ProgressFor(sport)
		after := ResetDailyGoal(before, today)
		if _, ok := p.Preferences.Progress[sport]; !ok || !sameDailyGoal(before, after) {
			p.Preferences.Progress[sport] = after
			changed = true
		}
	}
	return changed
}

func sameDailyGoal(a, b models.SportProgress) bool {
	return a.DailyGoalProgress == b.DailyGoalProgress &&
		a.DailyGoalCompleted == b.DailyGoalCompleted &&
		a.LastQuizDate != nil && b.LastQuizDate != nil && *a.LastQuizDate == *b.LastQuizDate
}

func dedupeCategories(in []models.Category) []models.Category {
	seen := make(map[models.Category]bool, len(in))
	out := make([]models.Category, 0, len(in))
	for _, c := range in {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds
// or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
