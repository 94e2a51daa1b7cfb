package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quest-board-service/internal/domain"
	"quest-board-service/internal/infra/memory"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	source := &countingPool{StaticQuestionPool: memory.NewStaticQuestionPool(sampleQuestions())}
	cache := NewQuestionCache(client, source, time.Minute)

	qs, err := cache.TrackQuestions(context.Background(), "rhythm")
	if err != nil {
		t.Fatalf("track questions: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 rhythm questions, got %d", len(qs))
	}
	if source.calls != 1 {
		t.Fatalf("expected source called once, got %d", source.calls)
	}
	if !mr.Exists("quest:pool:rhythm") {
		t.Fatalf("expected track cached under quest:pool:rhythm")
	}
	if ttl := mr.TTL("quest:pool:rhythm"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl within jitter, got %s", ttl)
	}

	// Second call should hit cache, source not incremented.
	qs, _ = cache.TrackQuestions(context.Background(), "rhythm")
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
	if len(qs) != 2 || qs[0].Text == "" {
		t.Fatalf("expected full questions from cache, got %+v", qs)
	}
}

func TestQuestionCacheSharedAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingPool{StaticQuestionPool: memory.NewStaticQuestionPool(sampleQuestions())}
	first := NewQuestionCache(newClient(mr), source, time.Minute)
	second := NewQuestionCache(newClient(mr), source, time.Minute)

	_, _ = first.TrackQuestions(context.Background(), "rhythm")
	_, _ = second.TrackQuestions(context.Background(), "rhythm")
	if source.calls != 1 {
		t.Fatalf("expected second instance to read redis, source calls=%d", source.calls)
	}

	if err := second.Invalidate(context.Background(), "rhythm"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = first.TrackQuestions(context.Background(), "rhythm")
	if source.calls != 2 {
		t.Fatalf("expected reload after invalidate, source calls=%d", source.calls)
	}
}

type countingPool struct {
	*memory.StaticQuestionPool
	calls int
}

func (p *countingPool) TrackQuestions(ctx context.Context, track string) ([]domain.Question, error) {
	p.calls++
	return p.StaticQuestionPool.TrackQuestions(ctx, track)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "r1", Track: "rhythm", Level: 1, Text: "Clap along with a stranger", Active: true},
		{ID: "r2", Track: "rhythm", Level: 3, Text: "Lead a drum circle", Active: true},
		{ID: "f1", Track: "flow", Level: 2, Text: "Spin fire at dusk", Active: true},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
