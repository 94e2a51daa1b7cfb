package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quest-board-service/internal/domain"
)

// QuestionPool reads the mission catalogue from Postgres.
type QuestionPool struct {
	pool *pgxpool.Pool
}

func NewQuestionPool(pool *pgxpool.Pool) *QuestionPool {
	return &QuestionPool{pool: pool}
}

func (p *QuestionPool) TrackQuestions(ctx context.Context, track string) ([]domain.Question, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, track, level, text, active FROM questions WHERE track=$1 ORDER BY id`, track)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Track, &q.Level, &q.Text, &q.Active); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}
