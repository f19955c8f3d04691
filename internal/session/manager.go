package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-backend/internal/models"
)

const (
	DefaultIdleTTL      = 30 * time.Minute
	DefaultCompletedTTL = 5 * time.Minute
	sweepInterval       = time.Minute
)

// Manager keeps the live sessions of this process.
type Manager struct {
	cfg          Config
	idleTTL      time.Duration
	completedTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewManager(cfg Config, idleTTL, completedTTL time.Duration) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if completedTTL <= 0 {
		completedTTL = DefaultCompletedTTL
	}
	return &Manager{
		cfg:          cfg,
		idleTTL:      idleTTL,
		completedTTL: completedTTL,
		sessions:     make(map[string]*Session),
		stopChan:     make(chan struct{}),
	}
}

// Create registers a new, not yet started session for owner.
func (m *Manager) Create(owner string, sport models.Sport, hooks Hooks) *Session {
	s := New(uuid.New().String(), owner, sport, m.cfg, hooks)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id if owner started it.
func (m *Manager) Get(id, owner string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Owner() != owner {
		return nil, ErrNotOwner
	}
	return s, nil
}

// Remove abandons and forgets the session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Abandon()
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts finished sessions after the completed TTL and unfinished ones
// after the idle TTL. It returns the number evicted.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		ttl := m.idleTTL
		if s.Complete() {
			ttl = m.completedTTL
		}
		if now.Sub(s.LastActivity()) > ttl {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.Remove(id)
	}
	return len(expired)
}

// Start runs the sweeper until Stop is called.
func (m *Manager) Start() {
	go m.run()
	log.Println("✓ Session sweeper started")
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Abandon()
	}
	log.Println("Session sweeper stopped")
}

func (m *Manager) run() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(m.cfg.Clock.Now()); n > 0 {
				log.Printf("Session sweeper: evicted %d sessions", n)
			}
		case <-m.stopChan:
			return
		}
	}
}
