package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quest-board-service/internal/app"
	"quest-board-service/internal/domain"
)

// QuestionCache shares track question lists between service instances and falls
// back to a source on cache miss.
// Lists are stored as JSON: SET quest:pool:{track} [...questions]
type QuestionCache struct {
	client *redis.Client
	source app.QuestionPool
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, source app.QuestionPool, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) TrackQuestions(ctx context.Context, track string) ([]domain.Question, error) {
	if qs, ok := c.lookup(ctx, track); ok {
		return qs, nil
	}

	// Joined callers share this load, so it must not die with the first caller's ctx.
	shared := context.WithoutCancel(ctx)
	result, err, _ := c.sf.Do(track, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.lookup(shared, track); ok {
			return qs, nil
		}
		qs, err := c.source.TrackQuestions(shared, track)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(qs); err == nil {
			_ = c.client.Set(shared, c.key(track), payload, c.ttlWithJitter()).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate removes a cached track so the next read goes to the source.
func (c *QuestionCache) Invalidate(ctx context.Context, track string) error {
	return c.client.Del(ctx, c.key(track)).Err()
}

func (c *QuestionCache) lookup(ctx context.Context, track string) ([]domain.Question, bool) {
	payload, err := c.client.Get(ctx, c.key(track)).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; other errors also fall through to the source.
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(payload, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func (c *QuestionCache) key(track string) string {
	return "quest:pool:" + track
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
