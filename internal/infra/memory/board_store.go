package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"quest-board-service/internal/domain"
)

// BoardStore is an in-memory implementation of app.BoardStore.
type BoardStore struct {
	mu     sync.RWMutex
	byID   map[string]domain.Board
	byTurn map[string]string // owner/track/day -> board id
}

func NewBoardStore() *BoardStore {
	return &BoardStore{
		byID:   make(map[string]domain.Board),
		byTurn: make(map[string]string),
	}
}

func (s *BoardStore) FindBoard(_ context.Context, ownerID, track string, day int) (domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTurn[boardKey(ownerID, track, day)]
	if !ok {
		return domain.Board{}, domain.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *BoardStore) CreateBoard(_ context.Context, board domain.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := boardKey(board.OwnerID, board.Track, board.Day)
	if _, taken := s.byTurn[key]; taken {
		return domain.ErrConflict
	}
	if _, taken := s.byID[board.ID]; taken {
		return domain.ErrConflict
	}
	s.byID[board.ID] = board
	s.byTurn[key] = board.ID
	return nil
}

func (s *BoardStore) GetBoard(_ context.Context, boardID string) (domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.byID[boardID]
	if !ok {
		return domain.Board{}, domain.ErrNotFound
	}
	return board, nil
}

func (s *BoardStore) ListBoards(_ context.Context, ownerID string) ([]domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Board, 0)
	for _, b := range s.byID {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Day > out[j].Day
	})
	return out, nil
}

// Count reports how many boards are stored.
func (s *BoardStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func boardKey(ownerID, track string, day int) string {
	return ownerID + "\x00" + track + "\x00" + strconv.Itoa(day)
}
