package app

import (
	"context"
	"time"

	"quest-board-service/internal/domain"
)

// QuestionPool is the read-only mission catalogue.
type QuestionPool interface {
	// TrackQuestions returns every question tagged with track, active or not.
	TrackQuestions(ctx context.Context, track string) ([]domain.Question, error)
}

// BoardStore persists boards. Implementations must enforce uniqueness of (owner, track, day).
type BoardStore interface {
	// FindBoard returns domain.ErrNotFound when no board exists for the tuple.
	FindBoard(ctx context.Context, ownerID, track string, day int) (domain.Board, error)
	// CreateBoard returns domain.ErrConflict when the tuple is already taken.
	CreateBoard(ctx context.Context, board domain.Board) error
	GetBoard(ctx context.Context, boardID string) (domain.Board, error)
	// ListBoards returns the owner's boards, newest first.
	ListBoards(ctx context.Context, ownerID string) ([]domain.Board, error)
}

// ItemStore persists board items. Implementations must enforce uniqueness of (board, question),
// (board, track, slot) and at most one bonus per (board, track).
type ItemStore interface {
	// CreateItems inserts items, silently skipping rows that collide with a uniqueness
	// constraint, so a retry never duplicates anything.
	CreateItems(ctx context.Context, items []domain.BoardItem) error
	// ListItems returns a board's items ordered by slot.
	ListItems(ctx context.Context, boardID string) ([]domain.BoardItem, error)
	GetItem(ctx context.Context, itemID string) (domain.BoardItem, error)
	// RecordProof sets the proof reference and submission time together.
	RecordProof(ctx context.Context, itemID, ref string, at time.Time) error
	// MarkVerified sets the verification flag, verifier and time together, only if the
	// item is not verified yet; otherwise it returns domain.ErrAlreadyVerified.
	MarkVerified(ctx context.Context, itemID, verifierID string, at time.Time) error
}

// ArtifactStore accepts a payload at a path and returns a publicly resolvable reference.
type ArtifactStore interface {
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// EventBus fans board events out to feed subscribers.
type EventBus interface {
	Publish(ctx context.Context, event domain.BoardEvent) error
	// Subscribe returns a channel of events for one board. The caller must invoke cancel.
	Subscribe(ctx context.Context, boardID string) (<-chan domain.BoardEvent, func(), error)
}
