package memory

import (
	"context"
	"sync"

	"quest-board-service/internal/domain"
)

const subscriberBuffer = 8

// EventBus is an in-process implementation of app.EventBus.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.BoardEvent]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]map[chan domain.BoardEvent]struct{}),
	}
}

func (b *EventBus) Publish(_ context.Context, event domain.BoardEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers[event.BoardID] {
		select {
		case ch <- event:
		default:
			// Drop the oldest event so a slow feed never blocks publishers.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
	return nil
}

func (b *EventBus) Subscribe(_ context.Context, boardID string) (<-chan domain.BoardEvent, func(), error) {
	ch := make(chan domain.BoardEvent, subscriberBuffer)

	b.mu.Lock()
	subs, ok := b.subscribers[boardID]
	if !ok {
		subs = make(map[chan domain.BoardEvent]struct{})
		b.subscribers[boardID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[boardID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(b.subscribers, boardID)
		}
	}
	return ch, cancel, nil
}

// Subscribers reports how many feeds are open for a board.
func (b *EventBus) Subscribers(boardID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[boardID])
}
