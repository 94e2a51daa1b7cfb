package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quest-board-service/internal/domain"
)

// ItemStore keeps board items in Postgres.
type ItemStore struct {
	db *bun.DB
}

func NewItemStore(db *bun.DB) *ItemStore {
	return &ItemStore{db: db}
}

// CreateItems inserts the batch in one statement. Rows that hit any of the
// board_items unique constraints are skipped.
func (s *ItemStore) CreateItems(ctx context.Context, items []domain.BoardItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, toItemRow(it))
	}
	if _, err := s.db.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

func (s *ItemStore) ListItems(ctx context.Context, boardID string) ([]domain.BoardItem, error) {
	var rows []itemRow
	err := s.db.NewSelect().Model(&rows).
		Where("bi.board_id = ?", boardID).
		OrderExpr("bi.slot ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]domain.BoardItem, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *ItemStore) GetItem(ctx context.Context, itemID string) (domain.BoardItem, error) {
	row := new(itemRow)
	if err := s.db.NewSelect().Model(row).Where("bi.id = ?", itemID).Scan(ctx); err != nil {
		return domain.BoardItem{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *ItemStore) RecordProof(ctx context.Context, itemID, ref string, at time.Time) error {
	res, err := s.db.NewUpdate().Model((*itemRow)(nil)).
		Set("proof_url = ?", ref).
		Set("submitted_at = ?", at).
		Where("bi.id = ?", itemID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record proof: %w", err)
	}
	return requireRow(res)
}

func (s *ItemStore) MarkVerified(ctx context.Context, itemID, verifierID string, at time.Time) error {
	res, err := s.db.NewUpdate().Model((*itemRow)(nil)).
		Set("verified = TRUE").
		Set("verified_by = ?", verifierID).
		Set("verified_at = ?", at).
		Where("bi.id = ?", itemID).
		Where("bi.verified = FALSE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if err := requireRow(res); !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	// No row changed: either the item is gone or someone verified it first.
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return err
	}
	return domain.ErrAlreadyVerified
}

func requireRow(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
