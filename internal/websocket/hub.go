package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
	"trivia-backend/internal/services"
)

const writeWait = 10 * time.Second

// TokenParser resolves a bearer token into a player identity.
type TokenParser interface {
	ParseToken(tokenStr string) (models.AuthenticatedUser, uuid.UUID, error)
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans Redis pub/sub messages out to every socket a player has open.
// Members are keyed by user id, guests by guest:<device>.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*client
	redisClient *redis.Client
	tokens      TokenParser
	upgrader    websocket.Upgrader
	cancelFuncs map[string]context.CancelFunc
}

func NewHub(redisClient *redis.Client, tokens TokenParser, allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		connections: make(map[string][]*client),
		redisClient: redisClient,
		tokens:      tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

// identify accepts ?token= for members and ?device_id= for guests.
func (h *Hub) identify(r *http.Request) (models.AuthenticatedUser, bool) {
	q := r.URL.Query()
	if tokenStr := q.Get("token"); tokenStr != "" {
		identity, _, err := h.tokens.ParseToken(tokenStr)
		if err != nil {
			return models.AuthenticatedUser{}, false
		}
		return identity, true
	}
	return middleware.GuestIdentity(q.Get("device_id"))
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.registerConnection(identity.ID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(identity.ID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[key] = append(h.connections[key], c)

	// Start pub/sub subscription if this is the first connection for this player
	if len(h.connections[key]) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[key] = cancel
		go h.subscribeToPubSub(ctx, key)
	}

	log.Printf("WebSocket connected: %s (total: %d)", key, len(h.connections[key]))
}

func (h *Hub) unregisterConnection(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[key]
	for i, existing := range conns {
		if existing == c {
			h.connections[key] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[key]) == 0 {
		delete(h.connections, key)
		if cancel, ok := h.cancelFuncs[key]; ok {
			cancel()
			delete(h.cancelFuncs, key)
		}
	}

	log.Printf("WebSocket disconnected: %s", key)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, key string) {
	pubsub := h.redisClient.Subscribe(ctx, services.UpdatesChannel(key))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(key, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(key string, data []byte) {
	h.mu.RLock()
	clients := append([]*client(nil), h.connections[key]...)
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket write to %s failed: %v", key, err)
		}
	}
}

// ConnectionCount reports how many sockets key has open.
func (h *Hub) ConnectionCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[key])
}

// Notify delivers msg to sockets held by this instance only. It satisfies
// services.Notifier when Redis pub/sub is not in the path.
func (h *Hub) Notify(_ context.Context, key string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(key, data)
}
