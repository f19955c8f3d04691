package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"trivia-backend/internal/models"
	"trivia-backend/internal/repository"
)

type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string][]byte
	saves    int
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string][]byte)}
}

func (m *memProfileStore) Load(ctx context.Context, key string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.profiles[key]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *memProfileStore) Save(ctx context.Context, p *models.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserKey] = raw
	m.saves++
	return nil
}

func (m *memProfileStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	queues []string
	done   chan struct{}
}

func (r *recordingPublisher) Publish(ctx context.Context, queue string, body []byte) error {
	r.mu.Lock()
	r.queues = append(r.queues, queue)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return nil
}

var (
	guest  = models.AuthenticatedUser{ID: "guest:abc", DisplayName: "Guest-abc"}
	member = models.AuthenticatedUser{ID: "5b7c6a1e-0000-4000-8000-000000000001", DisplayName: "Ana", IsAuthenticated: true}
)

func newTestProfileService(now time.Time) (*ProfileService, *memProfileStore, *memProfileStore) {
	users, guests := newMemProfileStore(), newMemProfileStore()
	svc := NewProfileService(users, guests, nil, nil)
	svc.now = func() time.Time { return now }
	return svc, users, guests
}

func TestProfileService_GetCreatesDefaults(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, users, guests := newTestProfileService(now)

	p, err := svc.Get(context.Background(), guest)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if p.DisplayName != "Guest-abc" || len(p.Achievements) != len(DefaultAchievements()) {
		t.Fatalf("unexpected new profile: %+v", p)
	}
	if sp := p.Preferences.ProgressFor(models.SportSoccer); sp.Level != 1 || sp.XPToNextLevel != 100 {
		t.Fatalf("unexpected default progress: %+v", sp)
	}
	if len(guests.profiles) != 1 || len(users.profiles) != 0 {
		t.Fatalf("guest profile should live in the guest store")
	}

	if _, err := svc.Get(context.Background(), member); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(users.profiles) != 1 {
		t.Fatalf("authenticated profile should live in the user store")
	}
}

func TestProfileService_GetDoesNotRewriteUnchangedProfile(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, _, guests := newTestProfileService(now)

	svc.Get(context.Background(), guest)
	saves := guests.saves
	svc.Get(context.Background(), guest)
	if guests.saves != saves {
		t.Fatalf("expected no save for an unchanged profile, got %d extra", guests.saves-saves)
	}
}

func TestProfileService_DailyGoalResetsOnNewDay(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newTestProfileService(day1)
	ctx := context.Background()

	if _, err := svc.ApplySessionResult(ctx, guest, models.SessionResult{Sport: models.SportBasketball, Score: 5, Total: 10}); err != nil {
		t.Fatalf("ApplySessionResult() error: %v", err)
	}
	sp, _ := svc.Progress(ctx, guest, models.SportBasketball)
	if sp.DailyGoalProgress != 1 {
		t.Fatalf("expected daily goal progress 1, got %d", sp.DailyGoalProgress)
	}

	svc.now = func() time.Time { return day1.Add(24 * time.Hour) }
	sp, _ = svc.Progress(ctx, guest, models.SportBasketball)
	if sp.DailyGoalProgress != 0 || sp.DailyGoalCompleted {
		t.Fatalf("expected daily goal reset on a new day, got %+v", sp)
	}
	if sp.QuizzesCompleted != 1 || sp.StreakDays != 1 {
		t.Fatalf("reset must not touch lifetime counters: %+v", sp)
	}
}

func TestProfileService_ApplySessionResult(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newTestProfileService(now)
	ctx := context.Background()

	perfect := models.SessionResult{
		Sport: models.SportBasketball, Score: 10, Total: 10, CorrectCount: 10, MaxStreak: 10,
		AnsweredCount: 10, FastestAnswer: 3 * time.Second, Duration: 90 * time.Second,
	}
	applied, err := svc.ApplySessionResult(ctx, guest, perfect)
	if err != nil {
		t.Fatalf("ApplySessionResult() error: %v", err)
	}
	if applied.XPEarned != 100 || applied.Progress.Level != 2 {
		t.Fatalf("unexpected progress: %+v", applied)
	}

	ids := make(map[string]bool)
	for _, a := range applied.Unlocked {
		ids[a.ID] = true
		if a.UnlockedAt == nil || !a.UnlockedAt.Equal(now) {
			t.Fatalf("expected unlocked_at to be set for %s", a.ID)
		}
	}
	for _, want := range []string{"first_quiz", "perfect_score", "streak_10", "fast_answer", "basketball_perfect_score", "basketball_streak_7", "basketball_fast_quiz"} {
		if !ids[want] {
			t.Errorf("expected %s to unlock, got %v", want, ids)
		}
	}

	// Two more perfect games reach the three-perfect tally; nothing unlocks twice.
	svc.ApplySessionResult(ctx, guest, perfect)
	applied, _ = svc.ApplySessionResult(ctx, guest, perfect)
	if len(applied.Unlocked) != 1 || applied.Unlocked[0].ID != "basketball_three_perfect" {
		t.Fatalf("expected only basketball_three_perfect, got %+v", applied.Unlocked)
	}

	p, _ := svc.Get(ctx, guest)
	if p.PerfectScores[models.SportBasketball] != 3 {
		t.Fatalf("expected perfect tally 3, got %d", p.PerfectScores[models.SportBasketball])
	}
}

func TestProfileService_ApplySessionResultRejectsUnknownSport(t *testing.T) {
	svc, _, _ := newTestProfileService(time.Now())
	_, err := svc.ApplySessionResult(context.Background(), guest, models.SessionResult{Sport: "hockey"})
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProfileService_UpdatePreferences(t *testing.T) {
	svc, _, _ := newTestProfileService(time.Now())
	ctx := context.Background()

	tests := []struct {
		name    string
		req     models.UpdatePreferencesRequest
		wantErr string
	}{
		{"empty categories", models.UpdatePreferencesRequest{}, "categories"},
		{"unknown category", models.UpdatePreferencesRequest{Categories: []models.Category{"gossip"}}, "categories"},
		{"bad difficulty", models.UpdatePreferencesRequest{Categories: []models.Category{"stats"}, Difficulty: "insane"}, "difficulty"},
		{"bad sport", models.UpdatePreferencesRequest{Categories: []models.Category{"stats"}, PreferredSport: "golf"}, "preferred_sport"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdatePreferences(ctx, guest, tc.req)
			verr, ok := err.(*ValidationError)
			if !ok || verr.Fields[tc.wantErr] == "" {
				t.Fatalf("expected field error on %s, got %v", tc.wantErr, err)
			}
		})
	}

	p, err := svc.UpdatePreferences(ctx, guest, models.UpdatePreferencesRequest{
		Categories:     []models.Category{"stats", "draft", "stats"},
		Difficulty:     models.DifficultyHard,
		PreferredSport: models.SportSoccer,
	})
	if err != nil {
		t.Fatalf("UpdatePreferences() error: %v", err)
	}
	if len(p.Preferences.Categories) != 2 || p.Preferences.Difficulty != models.DifficultyHard || p.Preferences.PreferredSport != models.SportSoccer {
		t.Fatalf("unexpected preferences: %+v", p.Preferences)
	}
}

func TestProfileService_RecordAnswerAppends(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newTestProfileService(now)
	ctx := context.Background()

	for i, correct := range []bool{true, false} {
		err := svc.RecordAnswer(ctx, guest, models.AnswerResult{QuestionID: "q" + string(rune('1'+i)), Correct: correct, Sport: models.SportSoccer})
		if err != nil {
			t.Fatalf("RecordAnswer() error: %v", err)
		}
	}

	p, _ := svc.Get(ctx, guest)
	history := p.Preferences.QuestionHistory
	if len(history) != 2 || history[0].QuestionID != "q1" || history[1].Correct {
		t.Fatalf("unexpected history: %+v", history)
	}
	if history[0].Timestamp != now.UnixMilli() {
		t.Fatalf("expected epoch ms timestamp, got %d", history[0].Timestamp)
	}
}

func TestProfileService_UnlockAndReset(t *testing.T) {
	svc, _, _ := newTestProfileService(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	changed, err := svc.UnlockAchievements(ctx, guest, []string{"first_quiz"})
	if err != nil || len(changed) != 1 {
		t.Fatalf("expected first_quiz to unlock, got %v %v", changed, err)
	}
	changed, _ = svc.UnlockAchievements(ctx, guest, []string{"first_quiz"})
	if len(changed) != 0 {
		t.Fatalf("second unlock must be a no-op, got %v", changed)
	}

	recent, _ := svc.RecentAchievements(ctx, guest, 5)
	if len(recent) != 1 || recent[0].ID != "first_quiz" {
		t.Fatalf("unexpected recent list: %v", recent)
	}

	list, err := svc.ResetAchievements(ctx, guest)
	if err != nil {
		t.Fatalf("ResetAchievements() error: %v", err)
	}
	for _, a := range list {
		if a.Unlocked {
			t.Fatalf("expected %s to be locked after reset", a.ID)
		}
	}
}

func TestProfileService_AnnouncesUnlocks(t *testing.T) {
	users, guests := newMemProfileStore(), newMemProfileStore()
	pub := &recordingPublisher{done: make(chan struct{}, 4)}
	svc := NewProfileService(users, guests, pub, nil)

	if _, err := svc.UnlockAchievements(context.Background(), member, []string{"first_quiz"}); err != nil {
		t.Fatalf("UnlockAchievements() error: %v", err)
	}

	select {
	case <-pub.done:
	case <-time.After(time.Second):
		t.Fatal("expected an achievement event")
	}
	if pub.queues[0] != models.EventAchievementUnlocked {
		t.Fatalf("unexpected queue %q", pub.queues[0])
	}
}

func TestProfileService_ConcurrentWritesAreSerialized(t *testing.T) {
	svc, _, _ := newTestProfileService(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.RecordAnswer(ctx, guest, models.AnswerResult{QuestionID: "q", Sport: models.SportBasketball})
		}()
	}
	wg.Wait()

	p, _ := svc.Get(ctx, guest)
	if got := len(p.Preferences.QuestionHistory); got != 20 {
		t.Fatalf("expected 20 history entries, got %d", got)
	}
}

func TestProfileService_RequiresIdentity(t *testing.T) {
	svc, _, _ := newTestProfileService(time.Now())
	_, err := svc.Get(context.Background(), models.AuthenticatedUser{})
	if _, ok := err.(*UnauthorizedError); !ok {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
}

func TestProfileService_AwardLeaderboard(t *testing.T) {
	svc, _, _ := newTestProfileService(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	board := []models.ScoreEntry{{Username: "Zed", Score: 10}, {Username: "Ana", Score: 8}}

	got, err := svc.AwardLeaderboard(ctx, member, models.SportSoccer, board)
	if err != nil {
		t.Fatalf("AwardLeaderboard() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "soccer_leaderboard_top3" {
		t.Fatalf("expected only soccer_leaderboard_top3, got %+v", got)
	}

	got, _ = svc.AwardLeaderboard(ctx, member, models.SportSoccer, board)
	if len(got) != 0 {
		t.Fatalf("expected nothing new on a second fetch, got %+v", got)
	}

	got, _ = svc.AwardLeaderboard(ctx, guest, models.SportSoccer, board)
	if len(got) != 0 {
		t.Fatalf("expected nothing for a player off the board, got %+v", got)
	}
}
