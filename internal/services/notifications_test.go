package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"trivia-backend/internal/models"
	"trivia-backend/internal/repository"
)

type stubNotificationUsers struct {
	recipients []repository.NotificationRecipient
	users      map[uuid.UUID]*models.User
	settings   map[string]bool
	stamped    map[uuid.UUID]time.Time
}

func (s *stubNotificationUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.users[id], nil
}

func (s *stubNotificationUsers) GetNotificationSetting(_ context.Context, _ uuid.UUID, key string, defaultValue bool) (bool, error) {
	if v, ok := s.settings[key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func (s *stubNotificationUsers) ListUsersWithNotificationEnabled(context.Context, string, string) ([]repository.NotificationRecipient, error) {
	return s.recipients, nil
}

func (s *stubNotificationUsers) SetNotificationTimestamp(_ context.Context, userID uuid.UUID, _ string, at time.Time) error {
	if s.stamped == nil {
		s.stamped = make(map[uuid.UUID]time.Time)
	}
	s.stamped[userID] = at
	return nil
}

type sentMail struct {
	to     string
	sport  string
	streak int
	titles []string
}

type stubMailer struct{ sent []sentMail }

func (m *stubMailer) SendStreakReminderEmail(to, _, sport string, streakDays int) error {
	m.sent = append(m.sent, sentMail{to: to, sport: sport, streak: streakDays})
	return nil
}

func (m *stubMailer) SendAchievementEmail(to, _ string, titles []string) error {
	m.sent = append(m.sent, sentMail{to: to, titles: titles})
	return nil
}


func TestShouldSendByLastSent(t *testing.T) {
	now := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)

	if !shouldSendByLastSent("", 24*time.Hour, now) {
		t.Fatalf("expected empty last-sent value to allow sending")
	}

	if !shouldSendByLastSent("not-a-date", 24*time.Hour, now) {
		t.Fatalf("expected invalid timestamp to allow sending")
	}

	recent := now.Add(-2 * time.Hour).Format(time.RFC3339)
	if shouldSendByLastSent(recent, 24*time.Hour, now) {
		t.Fatalf("expected recent send timestamp to block sending")
	}

	old := now.Add(-48 * time.Hour).Format(time.RFC3339)
	if !shouldSendByLastSent(old, 24*time.Hour, now) {
		t.Fatalf("expected old send timestamp to allow sending")
	}
}

func TestStreakAtRisk(t *testing.T) {
	now := time.Date(2026, 2, 16, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		progress   map[models.Sport]models.SportProgress
		wantOK     bool
		wantSport  models.Sport
		wantStreak int
	}{
		{
			name:     "no streaks",
			progress: map[models.Sport]models.SportProgress{models.SportBasketball: models.DefaultSportProgress()},
		},
		{
			name: "already played today",
			progress: map[models.Sport]models.SportProgress{
				models.SportBasketball: {StreakDays: 4, LastStreakDate: strPtr("2026-02-16")},
			},
		},
		{
			name: "lapsed before yesterday",
			progress: map[models.Sport]models.SportProgress{
				models.SportBasketball: {StreakDays: 4, LastStreakDate: strPtr("2026-02-14")},
			},
		},
		{
			name: "longest at-risk streak wins",
			progress: map[models.Sport]models.SportProgress{
				models.SportBasketball: {StreakDays: 2, LastStreakDate: strPtr("2026-02-15")},
				models.SportSoccer:     {StreakDays: 6, LastStreakDate: strPtr("2026-02-15")},
			},
			wantOK:     true,
			wantSport:  models.SportSoccer,
			wantStreak: 6,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sport, streak, ok := streakAtRisk(models.UserPreferences{Progress: tc.progress}, now)
			if ok != tc.wantOK || sport != tc.wantSport || streak != tc.wantStreak {
				t.Fatalf("got (%s, %d, %v), want (%s, %d, %v)", sport, streak, ok, tc.wantSport, tc.wantStreak, tc.wantOK)
			}
		})
	}
}

func TestSendStreakReminders(t *testing.T) {
	atRisk := uuid.New()
	safe := uuid.New()
	recent := uuid.New()
	now := time.Date(2026, 2, 16, 19, 0, 0, 0, time.UTC)

	profiles := newMemProfileStore()
	for _, id := range []uuid.UUID{atRisk, recent} {
		prefs := models.DefaultPreferences()
		prefs.Progress[models.SportBasketball] = models.SportProgress{StreakDays: 3, LastStreakDate: strPtr("2026-02-15")}
		profiles.Save(context.Background(), &models.Profile{UserKey: id.String(), Preferences: prefs})
	}
	profiles.Save(context.Background(), &models.Profile{UserKey: safe.String(), Preferences: models.DefaultPreferences()})

	users := &stubNotificationUsers{recipients: []repository.NotificationRecipient{
		{ID: atRisk, Email: "risk@example.com"},
		{ID: safe, Email: "safe@example.com"},
		{ID: recent, Email: "recent@example.com", LastSentAtRaw: now.Add(-time.Hour).Format(time.RFC3339)},
		{ID: uuid.New(), Email: "noprofile@example.com"},
	}}
	mailer := &stubMailer{}
	s := NewNotificationScheduler(users, profiles, mailer)

	s.sendStreakReminders(context.Background(), now.Add(-3*time.Hour))
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no reminders before the evening window")
	}

	s.sendStreakReminders(context.Background(), now)
	if len(mailer.sent) != 1 || mailer.sent[0].to != "risk@example.com" || mailer.sent[0].streak != 3 || mailer.sent[0].sport != "basketball" {
		t.Fatalf("unexpected reminders %+v", mailer.sent)
	}
	if !users.stamped[atRisk].Equal(now) {
		t.Fatalf("expected last sent timestamp to be recorded")
	}
}

func TestHandleAchievementEvent(t *testing.T) {
	member := uuid.New()
	users := &stubNotificationUsers{
		users:    map[uuid.UUID]*models.User{member: {ID: member, Email: "ana@example.com", FullName: "Ana"}},
		settings: map[string]bool{},
	}
	mailer := &stubMailer{}
	s := NewNotificationScheduler(users, newMemProfileStore(), mailer)

	encode := func(e models.AchievementsUnlockedEvent) []byte {
		b, _ := json.Marshal(e)
		return b
	}
	unlocked := []models.Achievement{{ID: "first_quiz", Title: "First Whistle"}}

	if err := s.HandleAchievementEvent(context.Background(), encode(models.AchievementsUnlockedEvent{UserKey: "guest:abc", Achievements: unlocked})); err != nil {
		t.Fatalf("guest event should be ignored, got %v", err)
	}
	if err := s.HandleAchievementEvent(context.Background(), encode(models.AchievementsUnlockedEvent{UserKey: member.String(), IsAuthenticated: true, Achievements: unlocked})); err != nil {
		t.Fatalf("HandleAchievementEvent() error: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "ana@example.com" || mailer.sent[0].titles[0] != "First Whistle" {
		t.Fatalf("unexpected mail %+v", mailer.sent)
	}

	users.settings[models.NotifyAchievements] = false
	s.HandleAchievementEvent(context.Background(), encode(models.AchievementsUnlockedEvent{UserKey: member.String(), IsAuthenticated: true, Achievements: unlocked}))
	if len(mailer.sent) != 1 {
		t.Fatalf("opted-out member should not be mailed")
	}

	if err := s.HandleAchievementEvent(context.Background(), []byte("{")); err == nil {
		t.Fatalf("expected malformed event to error")
	}
}
