package services

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"trivia-backend/internal/catalog"
	"trivia-backend/internal/models"
	"trivia-backend/internal/session"
)

const (
	DefaultQuizQuestions = 10
	maxQuizQuestions     = 25
	backgroundTimeout    = 10 * time.Second
)

// QuizService starts sessions from the catalog and wires their hooks to
// profile persistence, the leaderboard and realtime updates. Hook work runs
// in the background and never reaches the session.
type QuizService struct {
	catalog     *catalog.Catalog
	sessions    *session.Manager
	profiles    *ProfileService
	leaderboard *LeaderboardService
	notifier    Notifier
	count       int

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time

	background sync.WaitGroup
}

func NewQuizService(cat *catalog.Catalog, sessions *session.Manager, profiles *ProfileService, leaderboard *LeaderboardService, notifier Notifier, count int) *QuizService {
	if count <= 0 {
		count = DefaultQuizQuestions
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &QuizService{
		catalog:     cat,
		sessions:    sessions,
		profiles:    profiles,
		leaderboard: leaderboard,
		notifier:    notifier,
		count:       count,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// Start picks questions for the player and begins a new session.
func (s *QuizService) Start(ctx context.Context, who models.AuthenticatedUser, req models.StartSessionRequest) (models.SessionSnapshot, error) {
	profile, err := s.profiles.Get(ctx, who)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	prefs := profile.Preferences

	sport := req.Sport
	if sport == "" {
		sport = prefs.PreferredSport
	}
	if !sport.Valid() {
		return models.SessionSnapshot{}, fieldError("sport", "Sport must be basketball or soccer")
	}

	count := req.Count
	if count <= 0 {
		count = s.count
	}
	if count > maxQuizQuestions {
		return models.SessionSnapshot{}, fieldError("count", "Too many questions requested")
	}

	questions := s.pick(sport, prefs, count, req.Personalized == nil || *req.Personalized)
	if len(questions) == 0 {
		return models.SessionSnapshot{}, &NotFoundError{Message: "No questions available for " + string(sport)}
	}

	sess := s.sessions.Create(who.ID, sport, s.hooks(who))
	if err := sess.Start(questions); err != nil {
		s.sessions.Remove(sess.ID())
		return models.SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *QuizService) pick(sport models.Sport, prefs models.UserPreferences, count int, personalized bool) []models.Question {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	if !personalized {
		return s.catalog.Random(sport, count, s.rng)
	}
	return Recommend(s.catalog.ForSport(sport), prefs, count, s.now(), s.rng)
}

func (s *QuizService) Get(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(id, who.ID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *QuizService) Answer(who models.AuthenticatedUser, id, option string) (models.SessionSnapshot, error) {
	return s.apply(who, id, func(sess *session.Session) error { return sess.SelectAnswer(option) })
}

func (s *QuizService) Advance(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
	return s.apply(who, id, func(sess *session.Session) error { return sess.Advance(false) })
}

func (s *QuizService) Pause(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
	return s.apply(who, id, func(sess *session.Session) error { return sess.Pause() })
}

func (s *QuizService) Resume(who models.AuthenticatedUser, id string) (models.SessionSnapshot, error) {
	return s.apply(who, id, func(sess *session.Session) error { return sess.Resume() })
}

func (s *QuizService) Hint(who models.AuthenticatedUser, id string, kind models.HintKind) (models.Hint, models.SessionSnapshot, error) {
	var hint models.Hint
	snap, err := s.apply(who, id, func(sess *session.Session) error {
		var err error
		hint, err = sess.UseHint(kind)
		return err
	})
	return hint, snap, err
}

// Abandon discards the session without recording a result.
func (s *QuizService) Abandon(who models.AuthenticatedUser, id string) error {
	if _, err := s.sessions.Get(id, who.ID); err != nil {
		return err
	}
	s.sessions.Remove(id)
	return nil
}

// Wait blocks until background persistence has drained.
func (s *QuizService) Wait() {
	s.background.Wait()
}

func (s *QuizService) apply(who models.AuthenticatedUser, id string, fn func(*session.Session) error) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(id, who.ID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	if err := fn(sess); err != nil {
		return models.SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *QuizService) hooks(who models.AuthenticatedUser) session.Hooks {
	feed := &snapshotFeed{}
	return session.Hooks{
		OnStart: func(sess *session.Session) {
			s.async("unlock first_quiz", func(ctx context.Context) error {
				_, err := s.profiles.UnlockAchievements(ctx, who, []string{"first_quiz"})
				return err
			})
		},
		OnAnswer: func(sess *session.Session, result models.AnswerResult) {
			s.async("record answer", func(ctx context.Context) error {
				return s.profiles.RecordAnswer(ctx, who, result)
			})
		},
		OnComplete: func(sess *session.Session, result models.SessionResult) {
			s.async("apply result", func(ctx context.Context) error {
				return s.complete(ctx, who, result)
			})
		},
		OnChange: func(sess *session.Session, snap models.SessionSnapshot) {
			s.async("push snapshot", func(ctx context.Context) error {
				feed.push(ctx, s.notifier, who.ID, snap)
				return nil
			})
		},
	}
}

func (s *QuizService) complete(ctx context.Context, who models.AuthenticatedUser, result models.SessionResult) error {
	applied, err := s.profiles.ApplySessionResult(ctx, who, result)
	if err != nil {
		return err
	}
	s.notifier.Notify(ctx, who.ID, models.WSMessage{
		Type: models.WSProgressUpdate,
		Payload: models.ProgressUpdateEvent{
			Sport:    result.Sport,
			Progress: applied.Progress,
			XPEarned: applied.XPEarned,
		},
	})

	// Only signed-in players reach the public board.
	if !who.IsAuthenticated || s.leaderboard == nil {
		return nil
	}
	err = s.leaderboard.Submit(ctx, models.SubmitScoreRequest{
		Username: who.DisplayName,
		Score:    result.Score,
		Sport:    result.Sport,
	})
	if err != nil {
		return err
	}
	board, err := s.leaderboard.Top(ctx, result.Sport)
	if err != nil {
		return err
	}
	_, err = s.profiles.AwardLeaderboard(ctx, who, result.Sport, board)
	return err
}

func (s *QuizService) async(what string, fn func(ctx context.Context) error) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("quiz: %s failed: %v", what, err)
		}
	}()
}

// snapshotFeed publishes one session's snapshots in version order. A snapshot
// that loses the race to a newer one is dropped.
type snapshotFeed struct {
	mu   sync.Mutex
	last uint64
}

func (f *snapshotFeed) push(ctx context.Context, notifier Notifier, userKey string, snap models.SessionSnapshot) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap.Version <= f.last {
		return false
	}
	f.last = snap.Version
	notifier.Notify(ctx, userKey, models.WSMessage{Type: models.WSSessionUpdate, Payload: snap})
	return true
}
