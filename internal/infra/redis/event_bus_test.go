package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quest-board-service/internal/domain"
)

func TestEventBusDeliversAcrossClients(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	subscriber := NewEventBus(newClient(mr))
	publisher := NewEventBus(newClient(mr))

	feed, cancel, err := subscriber.Subscribe(ctx, "b1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	at := time.Date(2025, 8, 29, 17, 0, 0, 0, time.UTC)
	if err := publisher.Publish(ctx, domain.BoardEvent{BoardID: "b2", ItemID: "other", Type: domain.EventProofSubmitted, At: at}); err != nil {
		t.Fatalf("publish other board: %v", err)
	}
	if err := publisher.Publish(ctx, domain.BoardEvent{BoardID: "b1", ItemID: "i1", Type: domain.EventProofSubmitted, At: at}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-feed:
		if ev.ItemID != "i1" || ev.Type != domain.EventProofSubmitted || !ev.At.Equal(at) {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected event on board feed")
	}
}

func TestEventBusCancelClosesFeed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	bus := NewEventBus(newClient(mr))
	feed, cancel, err := bus.Subscribe(context.Background(), "b1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	cancel()

	select {
	case _, ok := <-feed:
		if ok {
			t.Fatalf("expected closed feed")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("feed not closed after cancel")
	}
}
