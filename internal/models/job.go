package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobTypeQuestionGeneration = "question-generation"
	QueueQuestionGeneration   = "queue:question-generation"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Type         string          `json:"type"` // "question-generation"
	ConfigJSON   json.RawMessage `json:"config"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ResultCount  int             `json:"result_count"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	WSSessionUpdate       = "session_update"
	WSAchievementUnlocked = "achievement_unlocked"
	WSProgressUpdate      = "progress_update"
	WSStatusUpdate        = "status_update"
	WSCompleted           = "completed"
	WSError               = "error"
)

type StatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	Step     int       `json:"step"`
	StepName string    `json:"step_name"`
}

type CompletedEvent struct {
	JobID       uuid.UUID `json:"job_id"`
	ResultCount int       `json:"result_count"`
	ResultType  string    `json:"result_type"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

type AchievementUnlockedEvent struct {
	Achievements []Achievement `json:"achievements"`
}

type ProgressUpdateEvent struct {
	Sport    Sport         `json:"sport"`
	Progress SportProgress `json:"progress"`
	XPEarned int           `json:"xp_earned"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
