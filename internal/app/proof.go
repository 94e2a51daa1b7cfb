package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"quest-board-service/internal/domain"
	"quest-board-service/internal/logger"
	"quest-board-service/internal/metrics"
)

// ProofLimits are the per-kind size ceilings in bytes.
type ProofLimits struct {
	ImageMaxBytes int64
	VideoMaxBytes int64
}

// DefaultProofLimits allows 2MB photos and 10MB videos.
func DefaultProofLimits() ProofLimits {
	return ProofLimits{ImageMaxBytes: 2 << 20, VideoMaxBytes: 10 << 20}
}

// Limit returns the ceiling for kind.
func (l ProofLimits) Limit(kind domain.ArtifactKind) int64 {
	if kind == domain.ArtifactVideo {
		return l.VideoMaxBytes
	}
	return l.ImageMaxBytes
}

// ProofIntakeDeps wires the intake. Events, Logger, Metrics and Now are optional.
type ProofIntakeDeps struct {
	Boards    BoardStore
	Items     ItemStore
	Artifacts ArtifactStore
	Events    EventBus
	Logger    logrus.FieldLogger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// ProofIntake validates uploaded proofs, stores them and records the reference on the item.
// It never touches verification state.
type ProofIntake struct {
	boards    BoardStore
	items     ItemStore
	artifacts ArtifactStore
	events    EventBus
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
	now       func() time.Time
	limits    ProofLimits
}

func NewProofIntake(deps ProofIntakeDeps, limits ProofLimits) *ProofIntake {
	def := DefaultProofLimits()
	if limits.ImageMaxBytes <= 0 {
		limits.ImageMaxBytes = def.ImageMaxBytes
	}
	if limits.VideoMaxBytes <= 0 {
		limits.VideoMaxBytes = def.VideoMaxBytes
	}
	p := &ProofIntake{
		boards:    deps.Boards,
		items:     deps.Items,
		artifacts: deps.Artifacts,
		events:    deps.Events,
		log:       deps.Logger,
		metrics:   deps.Metrics,
		now:       deps.Now,
		limits:    limits,
	}
	if p.log == nil {
		p.log = logger.Discard()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Limits returns the effective ceilings.
func (p *ProofIntake) Limits() ProofLimits {
	return p.limits
}

// Validate checks kind and size without storing anything.
func (p *ProofIntake) Validate(artifact domain.Artifact) (domain.ArtifactKind, error) {
	kind, ok := artifact.Kind()
	if !ok {
		return "", fmt.Errorf("content type %q: %w", artifact.ContentType, domain.ErrUnsupportedArtifact)
	}
	if limit := p.limits.Limit(kind); artifact.Size() > limit {
		return kind, &domain.PayloadTooLargeError{Kind: kind, Limit: limit, Size: artifact.Size()}
	}
	return kind, nil
}

// Submit stores artifact as proof for itemID and returns the stored reference.
// ownerID must own the item's board; an empty ownerID skips the check.
func (p *ProofIntake) Submit(ctx context.Context, ownerID, itemID string, artifact domain.Artifact) (string, error) {
	kind, err := p.Validate(artifact)
	if err != nil {
		p.metrics.ProofSubmitted(string(kind), "rejected")
		return "", err
	}

	item, err := p.items.GetItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	board, err := p.boards.GetBoard(ctx, item.BoardID)
	if err != nil {
		return "", err
	}
	if ownerID != "" && board.OwnerID != ownerID {
		return "", domain.ErrNotFound
	}

	at := p.now()
	path := ProofPath(board.OwnerID, item.ID, at, artifact.Filename, kind)
	ref, err := p.artifacts.Put(ctx, path, artifact.ContentType, artifact.Data)
	if err != nil {
		p.metrics.ProofSubmitted(string(kind), "failed")
		return "", fmt.Errorf("store proof: %w", err)
	}
	if err := p.items.RecordProof(ctx, item.ID, ref, at); err != nil {
		p.metrics.ProofSubmitted(string(kind), "failed")
		return "", fmt.Errorf("record proof: %w", err)
	}

	p.metrics.ProofSubmitted(string(kind), "stored")
	p.log.WithFields(logrus.Fields{"item_id": item.ID, "board_id": board.ID, "kind": kind, "bytes": artifact.Size()}).
		Info("proof stored")
	if p.events != nil {
		ev := domain.BoardEvent{BoardID: board.ID, ItemID: item.ID, Type: domain.EventProofSubmitted, At: at}
		if err := p.events.Publish(ctx, ev); err != nil {
			p.log.WithError(err).WithField("board_id", board.ID).Warn("publish board event")
		}
	}
	return ref, nil
}

// ProofPath is owner/item/<unix millis>.<ext>; the timestamp keeps resubmissions apart.
func ProofPath(ownerID, itemID string, at time.Time, filename string, kind domain.ArtifactKind) string {
	return fmt.Sprintf("%s/%s/%d.%s", ownerID, itemID, at.UnixMilli(), proofExt(filename, kind))
}

func proofExt(filename string, kind domain.ArtifactKind) string {
	raw := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		return b.String()
	}
	if kind == domain.ArtifactVideo {
		return "mp4"
	}
	return "jpg"
}
