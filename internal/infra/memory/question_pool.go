package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"quest-board-service/internal/app"
	"quest-board-service/internal/domain"
)

const defaultPoolCacheTracks = 128

// CachedQuestionPool caches track question lists with TTL to avoid repeated DB hits.
type CachedQuestionPool struct {
	source app.QuestionPool
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	cache *lru.Cache
}

type cachedTrack struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionPool(source app.QuestionPool, ttl time.Duration) *CachedQuestionPool {
	cache, _ := lru.New(defaultPoolCacheTracks) // only fails for non-positive sizes
	return &CachedQuestionPool{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  cache,
	}
}

func (p *CachedQuestionPool) TrackQuestions(ctx context.Context, track string) ([]domain.Question, error) {
	if qs, ok := p.lookup(track); ok {
		return qs, nil
	}

	shared := context.WithoutCancel(ctx)
	result, err, _ := p.sf.Do(track, func() (interface{}, error) {
		if qs, ok := p.lookup(track); ok {
			return qs, nil
		}
		now := p.clock()
		qs, err := p.source.TrackQuestions(shared, track)
		if err != nil {
			return nil, err
		}
		p.cache.Add(track, cachedTrack{questions: qs, expiresAt: now.Add(p.ttlWithJitter())})
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

// Invalidate drops a cached track, e.g. after seeding the catalogue.
func (p *CachedQuestionPool) Invalidate(track string) {
	p.cache.Remove(track)
}

func (p *CachedQuestionPool) lookup(track string) ([]domain.Question, bool) {
	v, ok := p.cache.Get(track)
	if !ok {
		return nil, false
	}
	entry := v.(cachedTrack)
	if !entry.expiresAt.After(p.clock()) {
		return nil, false
	}
	return cloneQuestions(entry.questions), true
}

func (p *CachedQuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(p.ttl) / 10
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}

// StaticQuestionPool is a pool backed by a fixed slice (useful for tests/demos).
type StaticQuestionPool struct {
	mu        sync.RWMutex
	questions []domain.Question
}

func NewStaticQuestionPool(questions []domain.Question) *StaticQuestionPool {
	return &StaticQuestionPool{questions: cloneQuestions(questions)}
}

func (p *StaticQuestionPool) TrackQuestions(_ context.Context, track string) ([]domain.Question, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Question, 0, len(p.questions))
	for _, q := range p.questions {
		if q.Track == track {
			out = append(out, q)
		}
	}
	return out, nil
}

// Upsert adds or replaces questions by id.
func (p *StaticQuestionPool) Upsert(questions ...domain.Question) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, q := range questions {
		replaced := false
		for i := range p.questions {
			if p.questions[i].ID == q.ID {
				p.questions[i] = q
				replaced = true
				break
			}
		}
		if !replaced {
			p.questions = append(p.questions, q)
		}
	}
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	copy(out, qs)
	return out
}
