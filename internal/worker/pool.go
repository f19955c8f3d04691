package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trivia-backend/internal/models"
	"trivia-backend/internal/services"
)

// Generator runs a question-generation job and reports how many questions
// it added.
type Generator interface {
	Generate(ctx context.Context, job *models.Job) (int, error)
}

// JobStatusStore records job progress.
type JobStatusStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
}

const (
	defaultMaxRetries = 3
	jobLockTTL        = 10 * time.Minute
	popTimeout        = 30 * time.Second
)

type Pool struct {
	redis       *redis.Client
	generator   Generator
	jobRepo     JobStatusStore
	notifier    services.Notifier
	workerCount int
	stopChan    chan struct{}

	// requeue pushes a failed job back after backoff.
	requeue func(job *models.Job, backoff time.Duration)
}

func NewPool(
	redisClient *redis.Client,
	generator Generator,
	jobRepo JobStatusStore,
	notifier services.Notifier,
	workerCount int,
) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	p := &Pool{
		redis:       redisClient,
		generator:   generator,
		jobRepo:     jobRepo,
		notifier:    notifier,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
	p.requeue = p.redisRequeue
	return p
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines on %s", p.workerCount, models.QueueQuestionGeneration)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, popTimeout, models.QueueQuestionGeneration).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", jobLockTTL).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)
		p.process(ctx, &job)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "processing")
	p.publish(ctx, job, models.WSMessage{
		Type:    models.WSStatusUpdate,
		Payload: models.StatusUpdate{JobID: job.ID, Step: 1, StepName: "Preparing request"},
	})

	var (
		count int
		err   error
	)
	switch job.Type {
	case models.JobTypeQuestionGeneration:
		count, err = p.generator.Generate(ctx, job)
	default:
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		p.handleFailure(ctx, job, err)
		return
	}
	p.handleSuccess(ctx, job, count)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, count int) {
	p.publish(ctx, job, models.WSMessage{
		Type: models.WSCompleted,
		Payload: models.CompletedEvent{
			JobID:       job.ID,
			ResultCount: count,
			ResultType:  "questions",
		},
	})

	log.Printf("Job %s completed successfully (%d questions)", job.ID, count)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if job.RetryCount < maxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		p.requeue(job, backoff)
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
	p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	p.publish(ctx, job, models.WSMessage{
		Type: models.WSError,
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

func (p *Pool) redisRequeue(job *models.Job, backoff time.Duration) {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		log.Printf("Job %s: failed to encode for retry: %v", job.ID, err)
		return
	}
	time.AfterFunc(backoff, func() {
		p.redis.LPush(context.Background(), models.QueueQuestionGeneration, string(jobBytes))
	})
}

func (p *Pool) publish(ctx context.Context, job *models.Job, msg models.WSMessage) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(ctx, job.UserID.String(), msg)
}
