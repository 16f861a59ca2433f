package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "bontroc:events:"

// RedisBroker delivers events across API instances through Redis pub/sub,
// one channel per user.
type RedisBroker struct {
	client *goredis.Client
	logger *zap.Logger
}

func NewRedisBroker(client *goredis.Client, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

func userChannel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	if err := b.client.Publish(ctx, userChannel(ev.UserID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, userChannel(userID))
	// Wait for the subscription confirmation so nothing published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	box := newOutbox()
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}

	go func() {
		defer close(box.ch)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("Discarding malformed realtime event", zap.Error(err))
					continue
				}
				if !box.offer(userID, ev) {
					b.logger.Warn("Dropping realtime event for slow subscriber", zap.String("userID", userID.String()))
				}
			}
		}
	}()
	return box.ch, cancel, nil
}
