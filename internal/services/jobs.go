package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"trivia-backend/internal/models"
)

type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// JobQueue hands a job to the worker pool.
type JobQueue interface {
	Push(ctx context.Context, job *models.Job) error
}

type RedisJobQueue struct {
	redis *redis.Client
}

func NewRedisJobQueue(client *redis.Client) *RedisJobQueue {
	return &RedisJobQueue{redis: client}
}

func (q *RedisJobQueue) Push(ctx context.Context, job *models.Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.redis.LPush(ctx, models.QueueQuestionGeneration, string(jobBytes)).Err()
}

// JobService accepts question-generation requests from signed-in players.
type JobService struct {
	jobs    JobStore
	queue   JobQueue
	enabled bool
}

// NewJobService builds the service. When enabled is false every request is
// refused because no model is configured.
func NewJobService(jobs JobStore, queue JobQueue, enabled bool) *JobService {
	return &JobService{jobs: jobs, queue: queue, enabled: enabled}
}

func (s *JobService) RequestQuestions(ctx context.Context, userID uuid.UUID, req models.GenerateQuestionsRequest) (*models.Job, error) {
	if !s.enabled {
		return nil, &UnavailableError{Message: "Question generation is not configured"}
	}

	fields := make(map[string]string)
	if !req.Sport.Valid() {
		fields["sport"] = "Sport must be basketball or soccer"
	}
	if req.Category != "" && !req.Category.Valid() {
		fields["category"] = "Unknown category"
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		fields["difficulty"] = "Difficulty must be easy, medium or hard"
	}
	if req.Count == 0 {
		req.Count = 5
	}
	if req.Count < 1 || req.Count > maxGeneratedQuestions {
		fields["count"] = fmt.Sprintf("Count must be between 1 and %d", maxGeneratedQuestions)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	config, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		UserID:     userID,
		Type:       models.JobTypeQuestionGeneration,
		ConfigJSON: config,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	if err := s.queue.Push(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}
	return job, nil
}

// Get returns a job owned by userID.
func (s *JobService) Get(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Job not found"}
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, &NotFoundError{Message: "Job not found"}
	}
	return job, nil
}
