package session

import "errors"

var (
	ErrNoQuestions       = errors.New("session: no questions to play")
	ErrNotStarted        = errors.New("session: not started")
	ErrSessionComplete   = errors.New("session: already complete")
	ErrNotAwaitingAnswer = errors.New("session: not awaiting an answer")
	ErrNoAnswerSelected  = errors.New("session: no answer selected")
	ErrInvalidOption     = errors.New("session: option is not one of the choices")
	ErrInvalidHint       = errors.New("session: unknown hint kind")
	ErrHintUnavailable   = errors.New("session: no more hints of this kind")
	ErrPaused            = errors.New("session: paused")
	ErrNotPaused         = errors.New("session: not paused")
	ErrSessionNotFound   = errors.New("session: not found")
	ErrNotOwner          = errors.New("session: owned by another player")
)
