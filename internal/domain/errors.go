package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned by stores when an insert collides with a uniqueness constraint.
	// The engine resolves it by re-reading; it never reaches participants.
	ErrConflict = errors.New("record already exists")
	// ErrNotFound indicates a referenced board or item does not exist (or is not visible to the caller).
	ErrNotFound = errors.New("not found")
	// ErrInsufficientPool is returned when a track has fewer unused active questions than requested.
	ErrInsufficientPool = errors.New("not enough missions available")
	// ErrNotEligible is returned when a bonus is requested before every normal item is verified.
	ErrNotEligible = errors.New("complete all missions first")
	// ErrPayloadTooLarge matches every PayloadTooLargeError.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrUnsupportedArtifact is returned for proofs that are neither images nor videos.
	ErrUnsupportedArtifact = errors.New("proof must be an image or a video")
	// ErrOutsideEvent is returned when a day number falls outside the event calendar.
	ErrOutsideEvent = errors.New("no event day scheduled")
	// ErrNoProof is returned when verifying an item nobody submitted proof for.
	ErrNoProof = errors.New("item has no submitted proof")
	// ErrAlreadyVerified is returned by stores when an item was verified before this call.
	ErrAlreadyVerified = errors.New("item already verified")
)

// PayloadTooLargeError reports the ceiling that applied to a rejected artifact.
type PayloadTooLargeError struct {
	Kind  ArtifactKind
	Limit int64
	Size  int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("file too large (max %s %s)", FormatBytes(e.Limit), e.Kind)
}

func (e *PayloadTooLargeError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}

// FormatBytes renders a byte count the way limits are shown to participants (e.g. "2MB").
func FormatBytes(n int64) string {
	const mb = 1 << 20
	const kb = 1 << 10
	switch {
	case n >= mb && n%mb == 0:
		return fmt.Sprintf("%dMB", n/mb)
	case n >= mb:
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	case n >= kb && n%kb == 0:
		return fmt.Sprintf("%dKB", n/kb)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
