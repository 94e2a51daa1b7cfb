package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"quest-board-service/internal/domain"
)

// ItemStore is an in-memory implementation of app.ItemStore with the same
// uniqueness rules as the Postgres schema.
type ItemStore struct {
	mu      sync.RWMutex
	items   map[string]domain.BoardItem
	byBoard map[string][]string
	keys    map[string]struct{}
}

func NewItemStore() *ItemStore {
	return &ItemStore{
		items:   make(map[string]domain.BoardItem),
		byBoard: make(map[string][]string),
		keys:    make(map[string]struct{}),
	}
}

// CreateItems inserts all non-colliding rows under one lock, so a batch lands atomically.
func (s *ItemStore) CreateItems(_ context.Context, items []domain.BoardItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		keys := uniqueKeys(it)
		if _, dup := s.items[it.ID]; dup || s.anyTaken(keys) {
			continue
		}
		for _, k := range keys {
			s.keys[k] = struct{}{}
		}
		s.items[it.ID] = it
		s.byBoard[it.BoardID] = append(s.byBoard[it.BoardID], it.ID)
	}
	return nil
}

func (s *ItemStore) ListItems(_ context.Context, boardID string) ([]domain.BoardItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byBoard[boardID]
	out := make([]domain.BoardItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (s *ItemStore) GetItem(_ context.Context, itemID string) (domain.BoardItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return domain.BoardItem{}, domain.ErrNotFound
	}
	return it, nil
}

func (s *ItemStore) RecordProof(_ context.Context, itemID, ref string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	it.ProofRef = ref
	it.SubmittedAt = &at
	s.items[itemID] = it
	return nil
}

func (s *ItemStore) MarkVerified(_ context.Context, itemID, verifierID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	if it.Verified {
		return domain.ErrAlreadyVerified
	}
	it.Verified = true
	it.VerifiedBy = verifierID
	it.VerifiedAt = &at
	s.items[itemID] = it
	return nil
}

func (s *ItemStore) anyTaken(keys []string) bool {
	for _, k := range keys {
		if _, ok := s.keys[k]; ok {
			return true
		}
	}
	return false
}

// uniqueKeys mirrors the table constraints: (board, question), (board, track, slot)
// and one bonus per (board, track).
func uniqueKeys(it domain.BoardItem) []string {
	keys := []string{
		"q\x00" + it.BoardID + "\x00" + it.QuestionID,
		"s\x00" + it.BoardID + "\x00" + it.Track + "\x00" + strconv.Itoa(it.Slot),
	}
	if it.IsBonus {
		keys = append(keys, "b\x00"+it.BoardID+"\x00"+it.Track)
	}
	return keys
}
