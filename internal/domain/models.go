package domain

import (
	"strings"
	"time"
)

// Question is a catalogue entry. The engine never mutates it.
type Question struct {
	ID     string `json:"id" yaml:"id"`
	Track  string `json:"track" yaml:"track"`
	Level  int    `json:"level" yaml:"level"`
	Text   string `json:"text" yaml:"text"`
	Active bool   `json:"active" yaml:"active"`
}

// BoardStatusOpen is the only status boards are created with.
const BoardStatusOpen = "open"

// Board is a participant's set of missions for one track on one day.
type Board struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Track     string    `json:"track"`
	Day       int       `json:"day"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// BoardItem is one mission instance on a board.
type BoardItem struct {
	ID          string
	BoardID     string
	QuestionID  string
	Track       string
	Slot        int
	IsBonus     bool
	ProofRef    string
	SubmittedAt *time.Time
	Verified    bool
	VerifiedBy  string
	VerifiedAt  *time.Time
}

// HasProof reports whether a proof was recorded.
func (i BoardItem) HasProof() bool {
	return i.ProofRef != ""
}

// ItemView is the participant-facing projection of a BoardItem joined with its question.
type ItemView struct {
	ID            string     `json:"id"`
	Track         string     `json:"track"`
	IsBonus       bool       `json:"isBonus"`
	ProofRef      string     `json:"proofRef,omitempty"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	Verified      bool       `json:"verified"`
	QuestionText  string     `json:"questionText"`
	QuestionLevel int        `json:"questionLevel"`
}

// BoardState is the derived lifecycle state of a (board, track) pair.
type BoardState string

const (
	StateEmpty           BoardState = "empty"
	StateNormalsPending  BoardState = "normals_pending"
	StateNormalsComplete BoardState = "normals_complete"
	StateBonusDrawn      BoardState = "bonus_drawn"
)

// BoardProgress summarizes verification progress for a board.
type BoardProgress struct {
	BoardID  string     `json:"boardId"`
	Track    string     `json:"track"`
	State    BoardState `json:"state"`
	Verified int        `json:"verified"`
	Total    int        `json:"total"`
	Bonus    bool       `json:"bonus"`
}

// BonusResult is returned by a bonus draw. Created is false when a bonus already existed.
type BonusResult struct {
	Created bool       `json:"created"`
	Item    *BoardItem `json:"-"`
}

// ArtifactKind classifies an uploaded proof.
type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactVideo ArtifactKind = "video"
)

// Artifact is an uploaded proof payload.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Kind derives the artifact kind from its content type. ok is false for anything but images and videos.
func (a Artifact) Kind() (ArtifactKind, bool) {
	ct := strings.ToLower(strings.TrimSpace(a.ContentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return ArtifactImage, true
	case strings.HasPrefix(ct, "video/"):
		return ArtifactVideo, true
	}
	return "", false
}

// Size is the payload length in bytes.
func (a Artifact) Size() int64 {
	return int64(len(a.Data))
}

// BoardEventType names what happened on a board.
type BoardEventType string

const (
	EventProofSubmitted BoardEventType = "proof_submitted"
	EventItemVerified   BoardEventType = "item_verified"
	EventBonusDrawn     BoardEventType = "bonus_drawn"
)

// BoardEvent is published to board feed subscribers.
type BoardEvent struct {
	BoardID string         `json:"boardId"`
	ItemID  string         `json:"itemId"`
	Type    BoardEventType `json:"type"`
	At      time.Time      `json:"at"`
}
