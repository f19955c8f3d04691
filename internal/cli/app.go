// Package cli plays a quiz in the terminal against a local SQLite profile.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"trivia-backend/internal/catalog"
	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
	"trivia-backend/internal/repository/sqlite"
	"trivia-backend/internal/services"
	"trivia-backend/internal/session"
)

const (
	pollInterval   = 20 * time.Millisecond
	boardSize      = 5
	settleTimeout  = 5 * time.Second
	defaultDevice  = "local"
	defaultDBPath  = "trivia.db"
	feedbackPrefix = "  "
)

type Options struct {
	DBPath        string
	DeviceID      string
	Sport         models.Sport
	Count         int
	QuestionTime  time.Duration
	FeedbackDelay time.Duration
}

// Run plays one session. Letters answer, "h" asks for a hint and "q" quits.
func Run(ctx context.Context, in io.Reader, out io.Writer, opts Options) error {
	if opts.DBPath == "" {
		opts.DBPath = defaultDBPath
	}
	if opts.DeviceID == "" {
		opts.DeviceID = defaultDevice
	}

	who, ok := middleware.GuestIdentity(opts.DeviceID)
	if !ok {
		return fmt.Errorf("invalid device id %q", opts.DeviceID)
	}

	store, err := sqlite.NewProfileStore(opts.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", opts.DBPath, err)
	}
	defer store.Close()

	cat, err := seedCatalog()
	if err != nil {
		return err
	}

	manager := session.NewManager(session.Config{
		QuestionTime:  opts.QuestionTime,
		FeedbackDelay: opts.FeedbackDelay,
	}, 0, 0)
	defer manager.Stop()

	done := newCompletionSignal()
	profiles := services.NewProfileService(store, store, nil, nil)
	quiz := services.NewQuizService(cat, manager, profiles, nil, done, opts.Count)

	snap, err := quiz.Start(ctx, who, models.StartSessionRequest{Sport: opts.Sport, Count: opts.Count})
	if err != nil {
		return err
	}

	g := &game{quiz: quiz, who: who, id: snap.ID, reader: bufio.NewReader(in), out: out}
	fmt.Fprintf(out, "%s quiz, %d questions. Playing as %s.\n", sportName(snap.Sport), snap.Total, who.DisplayName)

	final, err := g.play(ctx, snap)
	if err != nil {
		return err
	}
	if final.Status != models.SessionComplete {
		fmt.Fprintln(out, "\nQuiz abandoned.")
		return nil
	}

	select {
	case <-done.ch:
	case <-time.After(settleTimeout):
	case <-ctx.Done():
		return ctx.Err()
	}
	quiz.Wait()

	fmt.Fprintf(out, "\nFinal score: %d/%d (best streak %d, hints %d)\n", final.Score, final.Total, final.MaxStreak, final.HintsUsed)
	return g.summary(ctx, store, profiles, final)
}

func seedCatalog() (*catalog.Catalog, error) {
	seed, err := catalog.SeedQuestions()
	if err != nil {
		return nil, err
	}
	questions := make([]models.Question, 0, len(seed))
	for _, q := range seed {
		questions = append(questions, catalog.Enrich(q))
	}
	return catalog.New(questions)
}

// completionSignal closes ch once the finished session has been applied to
// the profile.
type completionSignal struct {
	ch   chan struct{}
	once sync.Once
}

func newCompletionSignal() *completionSignal {
	return &completionSignal{ch: make(chan struct{})}
}

func (c *completionSignal) Notify(ctx context.Context, userKey string, msg models.WSMessage) {
	if msg.Type == models.WSProgressUpdate {
		c.once.Do(func() { close(c.ch) })
	}
}

type game struct {
	quiz   *services.QuizService
	who    models.AuthenticatedUser
	id     string
	reader *bufio.Reader
	out    io.Writer
}

func (g *game) play(ctx context.Context, snap models.SessionSnapshot) (models.SessionSnapshot, error) {
	for snap.Status != models.SessionComplete {
		if snap.Phase != models.PhaseAwaitingAnswer || snap.Question == nil {
			next, err := g.waitForNext(ctx, snap.CurrentIndex)
			if err != nil {
				return snap, err
			}
			snap = next
			continue
		}

		printQuestion(g.out, snap)
		next, quit, err := g.answer(snap)
		if err != nil {
			return snap, err
		}
		if quit {
			if err := g.quiz.Abandon(g.who, g.id); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
				return snap, err
			}
			return snap, nil
		}
		printFeedback(g.out, next.LastAnswer)

		next, err = g.waitForNext(ctx, snap.CurrentIndex)
		if err != nil {
			return snap, err
		}
		snap = next
	}
	return snap, nil
}

// answer reads input until the player commits to an option, quits or runs
// out of time.
func (g *game) answer(snap models.SessionSnapshot) (models.SessionSnapshot, bool, error) {
	options := snap.Question.Options
	maxLetter := byte('A' + len(options) - 1)

	for {
		fmt.Fprintf(g.out, "Answer [A-%c], h for a hint, q to quit: ", maxLetter)
		line, err := g.reader.ReadString('\n')
		if err != nil && line == "" {
			return snap, true, nil
		}
		input := strings.ToUpper(strings.TrimSpace(line))

		switch {
		case input == "Q":
			return snap, true, nil
		case input == "H":
			hint, _, err := g.quiz.Hint(g.who, g.id, models.HintElimination)
			if errors.Is(err, session.ErrHintUnavailable) {
				hint, _, err = g.quiz.Hint(g.who, g.id, models.HintClue)
			}
			if err != nil {
				if timedOut(err) {
					return g.current()
				}
				fmt.Fprintf(g.out, "No hint available: %v\n", err)
				continue
			}
			fmt.Fprintf(g.out, "Hint: %s\n", hint.Text)
			continue
		case len(input) == 1 && input[0] >= 'A' && input[0] <= maxLetter:
			option := options[input[0]-'A']
			if _, err := g.quiz.Answer(g.who, g.id, option); err != nil {
				if timedOut(err) {
					return g.current()
				}
				return snap, false, err
			}
			next, err := g.quiz.Advance(g.who, g.id)
			if err != nil {
				if timedOut(err) {
					return g.current()
				}
				return snap, false, err
			}
			return next, false, nil
		default:
			fmt.Fprintf(g.out, "Invalid input. Please enter a letter A-%c.\n", maxLetter)
		}
	}
}

func (g *game) current() (models.SessionSnapshot, bool, error) {
	snap, err := g.quiz.Get(g.who, g.id)
	return snap, false, err
}

// waitForNext polls until the session is past question index.
func (g *game) waitForNext(ctx context.Context, index int) (models.SessionSnapshot, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		next, err := g.quiz.Get(g.who, g.id)
		if err != nil {
			return next, err
		}
		if next.Status == models.SessionComplete ||
			(next.CurrentIndex != index && next.Phase == models.PhaseAwaitingAnswer) {
			return next, nil
		}

		select {
		case <-ctx.Done():
			return next, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *game) summary(ctx context.Context, store *sqlite.ProfileStore, profiles *services.ProfileService, final models.SessionSnapshot) error {
	progress, err := profiles.Progress(ctx, g.who, final.Sport)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Level %d, %d/%d XP, %d-day streak\n", progress.Level, progress.XP, progress.XPToNextLevel, progress.StreakDays)

	recent, err := profiles.RecentAchievements(ctx, g.who, 3)
	if err != nil {
		return err
	}
	for _, a := range recent {
		fmt.Fprintf(g.out, "Unlocked: %s\n", a.Title)
	}

	if err := store.InsertScore(ctx, final.Sport, g.who.DisplayName, final.Score); err != nil {
		return err
	}
	board, err := store.TopScores(ctx, final.Sport, boardSize)
	if err != nil {
		return err
	}
	fmt.Fprintln(g.out, "\nLocal best:")
	for i, e := range board {
		fmt.Fprintf(g.out, "%d. %s %d\n", i+1, e.Username, e.Score)
	}
	return nil
}

func sportName(sport models.Sport) string {
	name := string(sport)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func timedOut(err error) bool {
	return errors.Is(err, session.ErrNotAwaitingAnswer)
}

func printQuestion(out io.Writer, snap models.SessionSnapshot) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d: %s\n\n", snap.CurrentIndex+1, snap.Total, snap.Question.Text)
	for i, option := range snap.Question.Options {
		fmt.Fprintf(out, "%c. %s\n", 'A'+i, option)
	}
	fmt.Fprintf(out, "(%.0fs left)\n", snap.TimeRemaining)
}

func printFeedback(out io.Writer, last *models.AnswerResult) {
	if last == nil {
		return
	}
	fmt.Fprintln(out)
	switch {
	case last.Correct:
		fmt.Fprintln(out, feedbackPrefix+"Correct!")
	case last.TimedOut && last.Selected == nil:
		fmt.Fprintf(out, "%sTime's up. Correct answer was %s\n", feedbackPrefix, last.CorrectAnswer)
	default:
		fmt.Fprintf(out, "%sWrong. Correct answer was %s\n", feedbackPrefix, last.CorrectAnswer)
	}
}
