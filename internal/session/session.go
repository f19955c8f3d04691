// Package session runs a single timed trivia quiz. A Session moves through
// awaiting_answer and showing_feedback for each question and ends complete.
// It owns at most one scheduled event at a time (the question countdown or the
// feedback delay); every event carries a generation token so a callback that
// races with a stop is dropped.
package session

import (
	"math/rand"
	"sync"
	"time"

	"trivia-backend/internal/models"
)

const (
	DefaultQuestionTime  = 30 * time.Second
	DefaultFeedbackDelay = 1500 * time.Millisecond
	HintPenalty          = 5
)

type Config struct {
	QuestionTime  time.Duration
	FeedbackDelay time.Duration
	Clock         Clock
	// Rand drives hint randomness. Leave nil when sessions share a Config;
	// each session then seeds its own source.
	Rand *rand.Rand
}

func (c Config) withDefaults() Config {
	if c.QuestionTime <= 0 {
		c.QuestionTime = DefaultQuestionTime
	}
	if c.FeedbackDelay <= 0 {
		c.FeedbackDelay = DefaultFeedbackDelay
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(c.Clock.Now().UnixNano()))
	}
	return c
}

// Hooks are called after the session lock is released. They must not block;
// slow work belongs in a goroutine.
type Hooks struct {
	OnStart    func(s *Session)
	OnAnswer   func(s *Session, result models.AnswerResult)
	OnComplete func(s *Session, result models.SessionResult)
	OnChange   func(s *Session, snap models.SessionSnapshot)
}

type eventKind int

const (
	eventNone eventKind = iota
	eventCountdown
	eventFeedback
)

type Session struct {
	id    string
	owner string
	sport models.Sport
	cfg   Config
	hooks Hooks

	mu      sync.Mutex
	pending []func()

	questions []models.Question
	answers   []*string
	elapsed   []time.Duration
	index     int
	started   bool
	abandoned bool
	status    models.SessionStatus
	phase     models.SessionPhase

	score     int
	correct   int
	incorrect int
	streak    int
	maxStreak int
	hintsUsed int
	answered  int
	fastest   time.Duration

	hints      []models.Hint
	eliminated map[string]bool
	lastAnswer *models.AnswerResult
	frozenLeft time.Duration

	timer     Stopper
	gen       uint64
	event     eventKind
	deadline  time.Time
	remaining time.Duration
	paused    bool
	pausedAt  time.Time

	startedAt     time.Time
	pausedTotal   time.Duration
	completedAt   time.Time
	lastActivity  time.Time
	completeFired bool
	version       uint64
}

// New creates an idle session. Call Start to begin play.
func New(id, owner string, sport models.Sport, cfg Config, hooks Hooks) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		id:           id,
		owner:        owner,
		sport:        sport,
		cfg:          cfg,
		hooks:        hooks,
		status:       models.SessionInProgress,
		phase:        models.PhaseAwaitingAnswer,
		lastActivity: cfg.Clock.Now(),
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Owner() string       { return s.owner }
func (s *Session) Sport() models.Sport { return s.sport }

// Start resets all counters and begins the first question's countdown.
func (s *Session) Start(questions []models.Question) error {
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	return s.do(func(now time.Time) error {
		s.stopTimerLocked()

		s.questions = append([]models.Question(nil), questions...)
		s.answers = make([]*string, len(questions))
		s.elapsed = make([]time.Duration, len(questions))
		s.index = 0
		s.started = true
		s.abandoned = false
		s.status = models.SessionInProgress
		s.phase = models.PhaseAwaitingAnswer
		s.score, s.correct, s.incorrect = 0, 0, 0
		s.streak, s.maxStreak, s.hintsUsed = 0, 0, 0
		s.answered, s.fastest = 0, 0
		s.hints = nil
		s.eliminated = map[string]bool{}
		s.lastAnswer = nil
		s.paused = false
		s.pausedTotal = 0
		s.startedAt = now
		s.completedAt = time.Time{}
		s.completeFired = false

		s.scheduleLocked(now, s.cfg.QuestionTime, eventCountdown)

		if s.hooks.OnStart != nil {
			s.pending = append(s.pending, func() { s.hooks.OnStart(s) })
		}
		s.changedLocked(now)
		return nil
	})
}

// SelectAnswer records option as the answer to the current question. The
// countdown keeps running; selecting again replaces the previous choice.
func (s *Session) SelectAnswer(option string) error {
	return s.do(func(now time.Time) error {
		if err := s.checkAwaitingLocked(); err != nil {
			return err
		}
		q := s.questions[s.index]
		valid := false
		for _, opt := range q.Options {
			if opt == option {
				valid = true
				break
			}
		}
		if !valid {
			return ErrInvalidOption
		}

		chosen := option
		s.answers[s.index] = &chosen
		s.elapsed[s.index] = s.cfg.QuestionTime - s.timeLeftLocked(now)
		s.changedLocked(now)
		return nil
	})
}

// Advance locks in the current answer and shows feedback. Without a selected
// answer it does nothing unless timedOut is set.
func (s *Session) Advance(timedOut bool) error {
	return s.do(func(now time.Time) error {
		return s.advanceLocked(now, timedOut)
	})
}

// UseHint reveals a hint for the current question at a cost of HintPenalty
// points. The score never drops below zero.
func (s *Session) UseHint(kind models.HintKind) (models.Hint, error) {
	var hint models.Hint
	err := s.do(func(now time.Time) error {
		if err := s.checkAwaitingLocked(); err != nil {
			return err
		}
		h, eliminated, err := buildHint(kind, s.questions[s.index], s.eliminated, s.cfg.Rand)
		if err != nil {
			return err
		}
		if eliminated != "" {
			s.eliminated[eliminated] = true
		}
		s.hintsUsed++
		s.score -= HintPenalty
		if s.score < 0 {
			s.score = 0
		}
		s.hints = append(s.hints, h)
		hint = h
		s.changedLocked(now)
		return nil
	})
	return hint, err
}

// Pause freezes whichever event is live, keeping its remaining duration.
func (s *Session) Pause() error {
	return s.do(func(now time.Time) error {
		if err := s.checkPlayableLocked(); err != nil {
			return err
		}
		if s.paused {
			return ErrPaused
		}
		s.remaining = s.deadline.Sub(now)
		if s.remaining < 0 {
			s.remaining = 0
		}
		s.stopTimerLocked()
		s.paused = true
		s.pausedAt = now
		s.changedLocked(now)
		return nil
	})
}

// Resume reschedules the frozen event with exactly the time it had left.
func (s *Session) Resume() error {
	return s.do(func(now time.Time) error {
		if err := s.checkPlayableLocked(); err != nil {
			return err
		}
		if !s.paused {
			return ErrNotPaused
		}
		s.paused = false
		s.pausedTotal += now.Sub(s.pausedAt)
		s.scheduleLocked(now, s.remaining, s.event)
		s.changedLocked(now)
		return nil
	})
}

// Abandon stops all timers. The session completes no further and fires no
// completion hook.
func (s *Session) Abandon() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.abandoned = true
	s.phase = models.PhaseDone
	s.mu.Unlock()
}

// Snapshot returns the client view of the session.
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.cfg.Clock.Now())
}

// Result returns the summary once the session is complete.
func (s *Session) Result() (models.SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != models.SessionComplete {
		return models.SessionResult{}, false
	}
	return s.resultLocked(), true
}

// Complete reports whether the session has finished or been abandoned.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == models.SessionComplete || s.abandoned
}

// LastActivity is the time of the last state change.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// do runs fn under the lock and then the hook calls it queued.
func (s *Session) do(fn func(now time.Time) error) error {
	s.mu.Lock()
	err := fn(s.cfg.Clock.Now())
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, call := range pending {
		call()
	}
	return err
}

func (s *Session) checkPlayableLocked() error {
	if !s.started {
		return ErrNotStarted
	}
	if s.status == models.SessionComplete || s.abandoned {
		return ErrSessionComplete
	}
	return nil
}

func (s *Session) checkAwaitingLocked() error {
	if err := s.checkPlayableLocked(); err != nil {
		return err
	}
	if s.paused {
		return ErrPaused
	}
	if s.phase != models.PhaseAwaitingAnswer {
		return ErrNotAwaitingAnswer
	}
	return nil
}

func (s *Session) advanceLocked(now time.Time, timedOut bool) error {
	if err := s.checkAwaitingLocked(); err != nil {
		return err
	}
	selected := s.answers[s.index]
	if selected == nil && !timedOut {
		return ErrNoAnswerSelected
	}

	s.frozenLeft = s.timeLeftLocked(now)
	s.stopTimerLocked()

	if selected != nil {
		s.answered++
		if el := s.elapsed[s.index]; s.answered == 1 || el < s.fastest {
			s.fastest = el
		}
	}

	q := s.questions[s.index]
	isCorrect := selected != nil && *selected == q.CorrectAnswer
	if isCorrect {
		s.score++
		s.correct++
		s.streak++
		if s.streak > s.maxStreak {
			s.maxStreak = s.streak
		}
	} else {
		s.incorrect++
		s.streak = 0
	}

	result := models.AnswerResult{
		QuestionID:    q.ID,
		Selected:      selected,
		CorrectAnswer: q.CorrectAnswer,
		Correct:       isCorrect,
		TimedOut:      timedOut,
		ElapsedMs:     s.elapsed[s.index].Milliseconds(),
		Sport:         q.Sport,
	}
	if selected == nil {
		result.ElapsedMs = s.cfg.QuestionTime.Milliseconds()
	}
	s.lastAnswer = &result
	s.phase = models.PhaseShowingFeedback
	s.scheduleLocked(now, s.cfg.FeedbackDelay, eventFeedback)

	if s.hooks.OnAnswer != nil {
		s.pending = append(s.pending, func() { s.hooks.OnAnswer(s, result) })
	}
	s.changedLocked(now)
	return nil
}

func (s *Session) nextLocked(now time.Time) {
	if s.index+1 < len(s.questions) {
		s.index++
		s.phase = models.PhaseAwaitingAnswer
		s.hints = nil
		s.eliminated = map[string]bool{}
		s.scheduleLocked(now, s.cfg.QuestionTime, eventCountdown)
		s.changedLocked(now)
		return
	}

	s.status = models.SessionComplete
	s.phase = models.PhaseDone
	s.completedAt = now
	s.event = eventNone
	if !s.completeFired {
		s.completeFired = true
		result := s.resultLocked()
		if s.hooks.OnComplete != nil {
			s.pending = append(s.pending, func() { s.hooks.OnComplete(s, result) })
		}
	}
	s.changedLocked(now)
}

func (s *Session) fire(gen uint64) {
	_ = s.do(func(now time.Time) error {
		if gen != s.gen || s.paused || s.abandoned {
			return nil
		}
		s.timer = nil
		switch s.event {
		case eventCountdown:
			return s.advanceLocked(now, true)
		case eventFeedback:
			s.nextLocked(now)
		}
		return nil
	})
}

func (s *Session) scheduleLocked(now time.Time, d time.Duration, kind eventKind) {
	s.stopTimerLocked()
	gen := s.gen
	s.event = kind
	s.deadline = now.Add(d)
	s.timer = s.cfg.Clock.AfterFunc(d, func() { s.fire(gen) })
}

// stopTimerLocked cancels the live event and invalidates any callback that
// already started.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Session) timeLeftLocked(now time.Time) time.Duration {
	if s.paused {
		return s.remaining
	}
	left := s.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) changedLocked(now time.Time) {
	s.lastActivity = now
	s.version++
	if s.hooks.OnChange == nil {
		return
	}
	snap := s.snapshotLocked(now)
	s.pending = append(s.pending, func() { s.hooks.OnChange(s, snap) })
}

func (s *Session) resultLocked() models.SessionResult {
	duration := s.completedAt.Sub(s.startedAt) - s.pausedTotal
	return models.SessionResult{
		SessionID:      s.id,
		Sport:          s.sport,
		Score:          s.score,
		Total:          len(s.questions),
		CorrectCount:   s.correct,
		IncorrectCount: s.incorrect,
		MaxStreak:      s.maxStreak,
		HintsUsed:      s.hintsUsed,
		AnsweredCount:  s.answered,
		FastestAnswer:  s.fastest,
		Duration:       duration,
		DurationMs:     duration.Milliseconds(),
	}
}

func (s *Session) snapshotLocked(now time.Time) models.SessionSnapshot {
	snap := models.SessionSnapshot{
		ID:             s.id,
		Version:        s.version,
		Sport:          s.sport,
		Status:         s.status,
		Phase:          s.phase,
		CurrentIndex:   s.index,
		Total:          len(s.questions),
		LastAnswer:     s.lastAnswer,
		Score:          s.score,
		CorrectCount:   s.correct,
		IncorrectCount: s.incorrect,
		Streak:         s.streak,
		MaxStreak:      s.maxStreak,
		HintsUsed:      s.hintsUsed,
		Hints:          append([]models.Hint{}, s.hints...),
		Paused:         s.paused,
	}
	if s.paused {
		snap.Phase = models.PhasePaused
	}
	if !s.started || s.status == models.SessionComplete || s.abandoned {
		return snap
	}

	pq := s.questions[s.index].Public()
	snap.Question = &pq
	snap.Selected = s.answers[s.index]
	if s.phase == models.PhaseAwaitingAnswer {
		snap.TimeRemaining = s.timeLeftLocked(now).Seconds()
	} else {
		snap.TimeRemaining = s.frozenLeft.Seconds()
	}
	return snap
}
