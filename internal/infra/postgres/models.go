package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quest-board-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID        string    `bun:"id,pk"`
	Track     string    `bun:"track,notnull"`
	Level     int       `bun:"level,notnull"`
	Text      string    `bun:"text,notnull"`
	Active    bool      `bun:"active,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type boardRow struct {
	bun.BaseModel `bun:"table:boards,alias:b"`

	ID        string    `bun:"id,pk"`
	OwnerID   string    `bun:"owner_id,notnull"`
	Track     string    `bun:"track,notnull"`
	Day       int       `bun:"day_no,notnull"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type itemRow struct {
	bun.BaseModel `bun:"table:board_items,alias:bi"`

	ID          string     `bun:"id,pk"`
	BoardID     string     `bun:"board_id,notnull"`
	QuestionID  string     `bun:"question_id,notnull"`
	Track       string     `bun:"track,notnull"`
	Slot        int        `bun:"slot,notnull"`
	IsBonus     bool       `bun:"is_bonus,notnull"`
	ProofURL    string     `bun:"proof_url,nullzero"`
	SubmittedAt *time.Time `bun:"submitted_at"`
	Verified    bool       `bun:"verified,notnull"`
	VerifiedBy  string     `bun:"verified_by,nullzero"`
	VerifiedAt  *time.Time `bun:"verified_at"`
}

func toBoardRow(b domain.Board) *boardRow {
	return &boardRow{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Track:     b.Track,
		Day:       b.Day,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
	}
}

func (r *boardRow) toDomain() domain.Board {
	return domain.Board{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Track:     r.Track,
		Day:       r.Day,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func toItemRow(it domain.BoardItem) itemRow {
	return itemRow{
		ID:          it.ID,
		BoardID:     it.BoardID,
		QuestionID:  it.QuestionID,
		Track:       it.Track,
		Slot:        it.Slot,
		IsBonus:     it.IsBonus,
		ProofURL:    it.ProofRef,
		SubmittedAt: it.SubmittedAt,
		Verified:    it.Verified,
		VerifiedBy:  it.VerifiedBy,
		VerifiedAt:  it.VerifiedAt,
	}
}

func (r *itemRow) toDomain() domain.BoardItem {
	return domain.BoardItem{
		ID:          r.ID,
		BoardID:     r.BoardID,
		QuestionID:  r.QuestionID,
		Track:       r.Track,
		Slot:        r.Slot,
		IsBonus:     r.IsBonus,
		ProofRef:    r.ProofURL,
		SubmittedAt: r.SubmittedAt,
		Verified:    r.Verified,
		VerifiedBy:  r.VerifiedBy,
		VerifiedAt:  r.VerifiedAt,
	}
}
