package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"quest-board-service/internal/domain"
)

const subscriberBuffer = 8

// EventBus routes board events through Redis pub/sub so a feed opened on one
// instance sees proofs submitted on another.
// Channel per board: board:{boardID}:events
type EventBus struct {
	client *redis.Client
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

func (b *EventBus) Publish(ctx context.Context, event domain.BoardEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.client.Publish(ctx, b.channel(event.BoardID), payload).Err()
}

func (b *EventBus) Subscribe(ctx context.Context, boardID string) (<-chan domain.BoardEvent, func(), error) {
	ps := b.client.Subscribe(ctx, b.channel(boardID))
	// Wait for the subscription confirmation so no publish after this call is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", boardID, err)
	}

	out := make(chan domain.BoardEvent, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.BoardEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				default:
					// Slow feed: drop the oldest event rather than stall the reader.
					select {
					case <-out:
					default:
					}
					select {
					case out <- ev:
					default:
					}
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, cancel, nil
}

func (b *EventBus) channel(boardID string) string {
	return "board:" + boardID + ":events"
}
