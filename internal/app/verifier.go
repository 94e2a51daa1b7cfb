package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"quest-board-service/internal/domain"
	"quest-board-service/internal/logger"
)

// Verifier is the staff-side collaborator that confirms submitted proofs.
// Participant-facing code never reaches it.
type Verifier struct {
	items  ItemStore
	events EventBus
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewVerifier(items ItemStore, events EventBus, log logrus.FieldLogger) *Verifier {
	if log == nil {
		log = logger.Discard()
	}
	return &Verifier{items: items, events: events, log: log, now: time.Now}
}

// MarkVerified flags itemID as verified by verifierID. Verifying twice keeps the first verification.
func (v *Verifier) MarkVerified(ctx context.Context, itemID, verifierID string) (domain.BoardItem, error) {
	item, err := v.items.GetItem(ctx, itemID)
	if err != nil {
		return domain.BoardItem{}, err
	}
	if item.Verified {
		return item, nil
	}
	if !item.HasProof() {
		return domain.BoardItem{}, domain.ErrNoProof
	}

	at := v.now()
	err = v.items.MarkVerified(ctx, itemID, verifierID, at)
	if errors.Is(err, domain.ErrAlreadyVerified) {
		return v.items.GetItem(ctx, itemID)
	}
	if err != nil {
		return domain.BoardItem{}, err
	}
	v.log.WithFields(logrus.Fields{"item_id": itemID, "board_id": item.BoardID, "verifier": verifierID}).
		Info("item verified")
	if v.events != nil {
		ev := domain.BoardEvent{BoardID: item.BoardID, ItemID: itemID, Type: domain.EventItemVerified, At: at}
		if err := v.events.Publish(ctx, ev); err != nil {
			v.log.WithError(err).WithField("board_id", item.BoardID).Warn("publish board event")
		}
	}
	return v.items.GetItem(ctx, itemID)
}
