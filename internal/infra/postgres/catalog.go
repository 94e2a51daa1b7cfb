package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quest-board-service/internal/domain"
)

// Catalog writes the mission catalogue. Boards reference questions by id, so
// questions are retired with active=false rather than deleted.
type Catalog struct {
	db  *bun.DB
	now func() time.Time
}

func NewCatalog(db *bun.DB) *Catalog {
	return &Catalog{db: db, now: time.Now}
}

// Upsert inserts or updates questions by id and returns how many were written.
func (c *Catalog) Upsert(ctx context.Context, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	now := c.now().UTC()
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, questionRow{
			ID:        q.ID,
			Track:     q.Track,
			Level:     q.Level,
			Text:      q.Text,
			Active:    q.Active,
			UpdatedAt: now,
		})
	}
	res, err := c.db.NewInsert().Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("track = EXCLUDED.track").
		Set("level = EXCLUDED.level").
		Set("text = EXCLUDED.text").
		Set("active = EXCLUDED.active").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert questions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(rows), nil
	}
	return int(n), nil
}
