package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"trivia-backend/internal/models"
	"trivia-backend/internal/repository"
)

const (
	streakReminderInterval   = 20 * time.Hour
	streakReminderHourUTC    = 18
	notificationPollInterval = 1 * time.Hour
)

// NotificationUserStore is the slice of the user repository the scheduler
// and the achievement mailer need.
type NotificationUserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, defaultValue bool) (bool, error)
	ListUsersWithNotificationEnabled(ctx context.Context, notificationKey, lastSentKey string) ([]repository.NotificationRecipient, error)
	SetNotificationTimestamp(ctx context.Context, userID uuid.UUID, key string, at time.Time) error
}

type Mailer interface {
	SendStreakReminderEmail(to, name, sport string, streakDays int) error
	SendAchievementEmail(to, name string, titles []string) error
}

// NotificationScheduler emails members whose daily streak will lapse at
// midnight UTC, and mails achievement unlocks delivered as events.
type NotificationScheduler struct {
	userRepo NotificationUserStore
	profiles ProfileStore
	email    Mailer
	stopChan chan struct{}
}

func NewNotificationScheduler(userRepo NotificationUserStore, profiles ProfileStore, email Mailer) *NotificationScheduler {
	return &NotificationScheduler{
		userRepo: userRepo,
		profiles: profiles,
		email:    email,
		stopChan: make(chan struct{}),
	}
}

func (s *NotificationScheduler) Start() {
	if s.userRepo == nil || s.email == nil || s.profiles == nil {
		return
	}

	go s.loop(func(ctx context.Context, now time.Time) {
		s.sendStreakReminders(ctx, now)
	})

	log.Printf("Notification scheduler started")
}

func (s *NotificationScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *NotificationScheduler) loop(runFn func(ctx context.Context, now time.Time)) {
	// Run on startup as well as by interval.
	runFn(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(notificationPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			runFn(context.Background(), time.Now().UTC())
		}
	}
}

func (s *NotificationScheduler) sendStreakReminders(ctx context.Context, now time.Time) {
	if now.Hour() < streakReminderHourUTC {
		return
	}

	recipients, err := s.userRepo.ListUsersWithNotificationEnabled(ctx, models.NotifyStreakReminder, models.LastStreakReminderAt)
	if err != nil {
		log.Printf("streak reminders: failed to list recipients: %v", err)
		return
	}

	for _, recipient := range recipients {
		if !shouldSendByLastSent(recipient.LastSentAtRaw, streakReminderInterval, now) {
			continue
		}

		profile, loadErr := s.profiles.Load(ctx, recipient.ID.String())
		if errors.Is(loadErr, repository.ErrProfileNotFound) {
			continue
		}
		if loadErr != nil {
			log.Printf("streak reminders: failed to load profile for user %s: %v", recipient.ID, loadErr)
			continue
		}

		sport, streak, ok := streakAtRisk(profile.Preferences, now)
		if !ok {
			continue
		}

		if err := s.email.SendStreakReminderEmail(recipient.Email, recipient.FullName, string(sport), streak); err != nil {
			log.Printf("streak reminders: failed to send to %s: %v", recipient.Email, err)
			continue
		}

		if err := s.userRepo.SetNotificationTimestamp(ctx, recipient.ID, models.LastStreakReminderAt, now); err != nil {
			log.Printf("streak reminders: failed to persist last sent at for user %s: %v", recipient.ID, err)
		}
	}
}

// HandleAchievementEvent consumes an achievement.unlocked event and emails
// the member if they opted in. Guests have no address and are skipped.
func (s *NotificationScheduler) HandleAchievementEvent(ctx context.Context, body []byte) error {
	var event models.AchievementsUnlockedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("invalid achievement event: %w", err)
	}
	if !event.IsAuthenticated || len(event.Achievements) == 0 {
		return nil
	}

	userID, err := uuid.Parse(event.UserKey)
	if err != nil {
		return fmt.Errorf("invalid user key %q: %w", event.UserKey, err)
	}

	enabled, err := s.userRepo.GetNotificationSetting(ctx, userID, models.NotifyAchievements, true)
	if err != nil {
		return fmt.Errorf("failed to load achievement email preference: %w", err)
	}
	if !enabled {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	titles := make([]string, 0, len(event.Achievements))
	for _, a := range event.Achievements {
		titles = append(titles, a.Title)
	}
	return s.email.SendAchievementEmail(user.Email, user.FullName, titles)
}

// streakAtRisk picks the sport with the longest streak that was extended
// yesterday and not yet today.
func streakAtRisk(prefs models.UserPreferences, now time.Time) (models.Sport, int, bool) {
	yesterday := now.UTC().AddDate(0, 0, -1).Format("2006-01-02")

	var (
		best     models.Sport
		bestDays int
	)
	for _, sport := range models.Sports {
		p, ok := prefs.Progress[sport]
		if !ok || p.StreakDays <= 0 || p.LastStreakDate == nil || *p.LastStreakDate != yesterday {
			continue
		}
		if p.StreakDays > bestDays {
			best, bestDays = sport, p.StreakDays
		}
	}
	return best, bestDays, bestDays > 0
}

func shouldSendByLastSent(lastSentRaw string, minInterval time.Duration, now time.Time) bool {
	if lastSentRaw == "" {
		return true
	}

	lastSentAt, err := time.Parse(time.RFC3339, lastSentRaw)
	if err != nil {
		return true
	}

	return now.Sub(lastSentAt) >= minInterval
}
