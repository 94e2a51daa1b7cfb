package cli

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"quest-board-service/internal/config"
	"quest-board-service/internal/domain"
	"quest-board-service/internal/infra/memory"
	redisinfra "quest-board-service/internal/infra/redis"
)

func TestBuildBackendsInMemory(t *testing.T) {
	b, err := buildBackends(context.Background(), config.Default(), "", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer b.Close()
	if _, ok := b.boards.(*memory.BoardStore); !ok {
		t.Fatalf("expected memory board store, got %T", b.boards)
	}
	if _, ok := b.events.(*memory.EventBus); !ok {
		t.Fatalf("expected memory event bus, got %T", b.events)
	}
	if b.memArtifacts == nil {
		t.Fatalf("expected in-process artifact store")
	}
	qs, err := b.pool.TrackQuestions(context.Background(), "rhythm")
	if err != nil || len(qs) == 0 {
		t.Fatalf("expected sample rhythm questions, got %d (%v)", len(qs), err)
	}
}

func TestBuildBackendsWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	b, err := buildBackends(context.Background(), cfg, "", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer b.Close()

	if _, ok := b.events.(*redisinfra.EventBus); !ok {
		t.Fatalf("expected redis event bus, got %T", b.events)
	}
	if _, err := b.pool.TrackQuestions(context.Background(), "community"); err != nil {
		t.Fatalf("track questions: %v", err)
	}
	if !mr.Exists("quest:pool:community") {
		t.Fatalf("expected track list cached in redis")
	}
}

func TestTracksOf(t *testing.T) {
	got := tracksOf([]domain.Question{{Track: "rhythm"}, {Track: "community"}, {Track: "rhythm"}})
	if len(got) != 2 || got[0] != "rhythm" || got[1] != "community" {
		t.Fatalf("unexpected tracks %v", got)
	}
}
