package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"quest-board-service/internal/domain"
)

// BoardStore keeps boards in Postgres. The (owner_id, track, day_no) constraint
// arbitrates concurrent creation across processes.
type BoardStore struct {
	db *bun.DB
}

func NewBoardStore(db *bun.DB) *BoardStore {
	return &BoardStore{db: db}
}

func (s *BoardStore) FindBoard(ctx context.Context, ownerID, track string, day int) (domain.Board, error) {
	row := new(boardRow)
	err := s.db.NewSelect().Model(row).
		Where("b.owner_id = ?", ownerID).
		Where("b.track = ?", track).
		Where("b.day_no = ?", day).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Board{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *BoardStore) CreateBoard(ctx context.Context, board domain.Board) error {
	if _, err := s.db.NewInsert().Model(toBoardRow(board)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

func (s *BoardStore) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	row := new(boardRow)
	if err := s.db.NewSelect().Model(row).Where("b.id = ?", boardID).Scan(ctx); err != nil {
		return domain.Board{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *BoardStore) ListBoards(ctx context.Context, ownerID string) ([]domain.Board, error) {
	var rows []boardRow
	err := s.db.NewSelect().Model(&rows).
		Where("b.owner_id = ?", ownerID).
		OrderExpr("b.created_at DESC, b.day_no DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	out := make([]domain.Board, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
