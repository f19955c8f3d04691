package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"trivia-backend/internal/models"
)

type stubGenerator struct {
	count int
	err   error
}

func (g stubGenerator) Generate(context.Context, *models.Job) (int, error) { return g.count, g.err }

type stubJobStore struct {
	mu       sync.Mutex
	statuses []string
	lastErr  string
	retries  int
}

func (s *stubJobStore) UpdateStatus(_ context.Context, _ uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubJobStore) UpdateError(_ context.Context, _ uuid.UUID, errMsg string, retryCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = errMsg
	s.retries = retryCount
	return nil
}

type stubNotifier struct {
	mu   sync.Mutex
	msgs []models.WSMessage
}

func (n *stubNotifier) Notify(_ context.Context, _ string, msg models.WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *stubNotifier) last() models.WSMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msgs[len(n.msgs)-1]
}

func newTestPool(gen Generator) (*Pool, *stubJobStore, *stubNotifier, *[]time.Duration) {
	store := &stubJobStore{}
	notifier := &stubNotifier{}
	p := NewPool(nil, gen, store, notifier, 1)
	var backoffs []time.Duration
	p.requeue = func(_ *models.Job, backoff time.Duration) { backoffs = append(backoffs, backoff) }
	return p, store, notifier, &backoffs
}

func TestProcess_Success(t *testing.T) {
	p, store, notifier, backoffs := newTestPool(stubGenerator{count: 4})
	job := &models.Job{ID: uuid.New(), UserID: uuid.New(), Type: models.JobTypeQuestionGeneration}

	p.process(context.Background(), job)

	if len(*backoffs) != 0 {
		t.Fatalf("successful job should not be requeued")
	}
	if store.statuses[0] != "processing" {
		t.Fatalf("expected processing status first, got %v", store.statuses)
	}
	msg := notifier.last()
	done, ok := msg.Payload.(models.CompletedEvent)
	if msg.Type != models.WSCompleted || !ok || done.ResultCount != 4 || done.ResultType != "questions" {
		t.Fatalf("unexpected completion message %+v", msg)
	}
}

func TestProcess_RetriesThenFails(t *testing.T) {
	p, store, notifier, backoffs := newTestPool(stubGenerator{err: errors.New("model unavailable")})
	job := &models.Job{ID: uuid.New(), UserID: uuid.New(), Type: models.JobTypeQuestionGeneration, MaxRetries: 3}

	for i := 0; i < 3; i++ {
		p.process(context.Background(), job)
	}

	if got := *backoffs; len(got) != 2 || got[0] != 2*time.Second || got[1] != 4*time.Second {
		t.Fatalf("unexpected backoffs %v", got)
	}
	if store.statuses[len(store.statuses)-1] != "failed" || store.retries != 3 || store.lastErr != "model unavailable" {
		t.Fatalf("expected permanent failure, got %v retries=%d err=%q", store.statuses, store.retries, store.lastErr)
	}
	if msg := notifier.last(); msg.Type != models.WSError {
		t.Fatalf("expected error message, got %s", msg.Type)
	}
}

func TestProcess_UnknownType(t *testing.T) {
	p, store, _, backoffs := newTestPool(stubGenerator{count: 1})
	job := &models.Job{ID: uuid.New(), Type: "summary-generation", MaxRetries: 1}

	p.process(context.Background(), job)

	if len(*backoffs) != 0 || store.statuses[len(store.statuses)-1] != "failed" {
		t.Fatalf("unknown job type should fail without retry, got %v", store.statuses)
	}
}
