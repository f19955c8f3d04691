package services

import (
	"context"
	"errors"
	"testing"
)

func TestLocalBus_DeliversToSubscribers(t *testing.T) {
	bus := NewLocalBus()

	var got []string
	bus.Subscribe("quiz.completed", func(ctx context.Context, body []byte) error {
		got = append(got, "a:"+string(body))
		return nil
	})
	bus.Subscribe("quiz.completed", func(ctx context.Context, body []byte) error {
		got = append(got, "b:"+string(body))
		return errors.New("mail server down")
	})

	if err := bus.Publish(context.Background(), "quiz.completed", []byte("1")); err != nil {
		t.Fatalf("handler errors should be logged, not returned: %v", err)
	}
	if err := bus.Publish(context.Background(), "score.submitted", []byte("2")); err != nil {
		t.Fatalf("unsubscribed queue should be dropped silently: %v", err)
	}

	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:1" {
		t.Fatalf("unexpected deliveries %v", got)
	}
}
