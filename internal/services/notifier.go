package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"trivia-backend/internal/models"
)

// Notifier pushes a realtime message to every socket a player has open.
type Notifier interface {
	Notify(ctx context.Context, userKey string, msg models.WSMessage)
}

// UpdatesChannel is the pub/sub channel carrying a player's realtime
// messages.
func UpdatesChannel(userKey string) string {
	return fmt.Sprintf("user_updates:%s", userKey)
}

// RedisNotifier publishes through Redis so any instance holding the socket
// can deliver it.
type RedisNotifier struct {
	redis *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{redis: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, userKey string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("notify: failed to encode %s: %v", msg.Type, err)
		return
	}
	if err := n.redis.Publish(ctx, UpdatesChannel(userKey), string(data)).Err(); err != nil {
		log.Printf("notify: failed to publish %s for %s: %v", msg.Type, userKey, err)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, models.WSMessage) {}
