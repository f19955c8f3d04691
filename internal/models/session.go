package models

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionComplete   SessionStatus = "complete"
)

// SessionPhase is the sub-state of an in-progress session.
type SessionPhase string

const (
	PhaseAwaitingAnswer  SessionPhase = "awaiting_answer"
	PhaseShowingFeedback SessionPhase = "showing_feedback"
	PhasePaused          SessionPhase = "paused"
	PhaseDone            SessionPhase = "done"
)

type HintKind string

const (
	HintGeneral     HintKind = "general"
	HintElimination HintKind = "elimination"
	HintClue        HintKind = "clue"
)

func (h HintKind) Valid() bool {
	switch h {
	case HintGeneral, HintElimination, HintClue:
		return true
	}
	return false
}

type Hint struct {
	Kind HintKind `json:"kind"`
	Text string   `json:"text"`
}

// AnswerResult is the outcome of one question, reported once feedback starts.
type AnswerResult struct {
	QuestionID    string  `json:"question_id"`
	Selected      *string `json:"selected"`
	CorrectAnswer string  `json:"correct_answer"`
	Correct       bool    `json:"correct"`
	TimedOut      bool    `json:"timed_out"`
	ElapsedMs     int64   `json:"elapsed_ms"`
	Sport         Sport   `json:"sport"`
}

// SessionResult summarises a completed session.
type SessionResult struct {
	SessionID      string        `json:"session_id"`
	Sport          Sport         `json:"sport"`
	Score          int           `json:"score"`
	Total          int           `json:"total"`
	CorrectCount   int           `json:"correct_count"`
	IncorrectCount int           `json:"incorrect_count"`
	MaxStreak      int           `json:"max_streak"`
	HintsUsed      int           `json:"hints_used"`
	AnsweredCount  int           `json:"answered_count"`
	FastestAnswer  time.Duration `json:"-"` // meaningful only when AnsweredCount > 0
	Duration       time.Duration `json:"-"`
	DurationMs     int64         `json:"duration_ms"`
}

// Perfect reports whether every question was answered correctly.
func (r SessionResult) Perfect() bool {
	return r.Total > 0 && r.Score == r.Total
}

// SessionSnapshot is the client view of a session. The current question never
// carries its answer.
type SessionSnapshot struct {
	ID             string          `json:"id"`
	Version        uint64          `json:"version"` // grows with every state change
	Sport          Sport           `json:"sport"`
	Status         SessionStatus   `json:"status"`
	Phase          SessionPhase    `json:"phase"`
	CurrentIndex   int             `json:"current_index"`
	Total          int             `json:"total"`
	Question       *PublicQuestion `json:"question,omitempty"`
	Selected       *string         `json:"selected"`
	LastAnswer     *AnswerResult   `json:"last_answer,omitempty"`
	Score          int             `json:"score"`
	CorrectCount   int             `json:"correct_count"`
	IncorrectCount int             `json:"incorrect_count"`
	Streak         int             `json:"streak"`
	MaxStreak      int             `json:"max_streak"`
	HintsUsed      int             `json:"hints_used"`
	Hints          []Hint          `json:"hints"`
	TimeRemaining  float64         `json:"time_remaining"` // seconds
	Paused         bool            `json:"paused"`
}

type StartSessionRequest struct {
	Sport        Sport `json:"sport"`
	Count        int   `json:"count"`
	Personalized *bool `json:"personalized"`
}

type AnswerRequest struct {
	Option string `json:"option"`
}

type HintRequest struct {
	Kind HintKind `json:"kind"`
}
