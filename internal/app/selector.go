package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quest-board-service/internal/domain"
)

// Selector draws questions uniformly at random without replacement.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector uses rnd for every draw; pass nil for a time-seeded source.
func NewSelector(rnd *rand.Rand) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rnd: rnd}
}

// Draw returns count distinct active questions of track from pool, skipping ids in exclude.
// An empty track matches every question.
func (s *Selector) Draw(pool []domain.Question, track string, count int, exclude map[string]struct{}) ([]domain.Question, error) {
	candidates := Candidates(pool, track, exclude)
	if count < 0 || len(candidates) < count {
		return nil, fmt.Errorf("track %q has %d eligible questions, need %d: %w", track, len(candidates), count, domain.ErrInsufficientPool)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Partial Fisher-Yates: only the first count positions are settled.
	for i := 0; i < count; i++ {
		j := i + s.rnd.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:count], nil
}

// Candidates filters pool to active, unexcluded questions of track, dropping duplicate ids.
// The result is a fresh slice; pool is never reordered.
func Candidates(pool []domain.Question, track string, exclude map[string]struct{}) []domain.Question {
	seen := make(map[string]struct{}, len(pool))
	out := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if !q.Active || (track != "" && q.Track != track) {
			continue
		}
		if _, skip := exclude[q.ID]; skip {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
