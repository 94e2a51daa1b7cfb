package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quest-board-service/internal/domain"
)

func TestBoardStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewBoardStore()

	board := domain.Board{ID: "b1", OwnerID: "u1", Track: "rhythm", Day: 1, Status: domain.BoardStatusOpen}
	if err := store.CreateBoard(ctx, board); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := board
	dup.ID = "b2"
	if err := store.CreateBoard(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := store.FindBoard(ctx, "u1", "rhythm", 1)
	if err != nil || got.ID != "b1" {
		t.Fatalf("expected b1, got %+v (%v)", got, err)
	}
	if _, err := store.FindBoard(ctx, "u1", "rhythm", 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for another day, got %v", err)
	}
	if _, err := store.GetBoard(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBoardStoreListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewBoardStore()
	base := time.Date(2025, 8, 29, 9, 0, 0, 0, time.UTC)
	_ = store.CreateBoard(ctx, domain.Board{ID: "old", OwnerID: "u1", Track: "rhythm", Day: 1, CreatedAt: base})
	_ = store.CreateBoard(ctx, domain.Board{ID: "new", OwnerID: "u1", Track: "rhythm", Day: 2, CreatedAt: base.Add(24 * time.Hour)})
	_ = store.CreateBoard(ctx, domain.Board{ID: "other", OwnerID: "u2", Track: "rhythm", Day: 1, CreatedAt: base})

	boards, _ := store.ListBoards(ctx, "u1")
	if len(boards) != 2 || boards[0].ID != "new" || boards[1].ID != "old" {
		t.Fatalf("unexpected order %+v", boards)
	}
}

func TestItemStoreSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore()

	items := []domain.BoardItem{
		{ID: "i1", BoardID: "b1", QuestionID: "q1", Track: "rhythm", Slot: 0},
		{ID: "i2", BoardID: "b1", QuestionID: "q2", Track: "rhythm", Slot: 1},
	}
	if err := store.CreateItems(ctx, items); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Retry of the same batch plus collisions on question and on slot.
	retry := append(items,
		domain.BoardItem{ID: "i3", BoardID: "b1", QuestionID: "q1", Track: "rhythm", Slot: 2},
		domain.BoardItem{ID: "i4", BoardID: "b1", QuestionID: "q9", Track: "rhythm", Slot: 1},
	)
	if err := store.CreateItems(ctx, retry); err != nil {
		t.Fatalf("retry: %v", err)
	}

	got, _ := store.ListItems(ctx, "b1")
	if len(got) != 2 {
		t.Fatalf("expected 2 items after retry, got %d", len(got))
	}
}

func TestItemStoreSingleBonus(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore()

	_ = store.CreateItems(ctx, []domain.BoardItem{{ID: "x1", BoardID: "b1", QuestionID: "q5", Track: "rhythm", Slot: 4, IsBonus: true}})
	_ = store.CreateItems(ctx, []domain.BoardItem{{ID: "x2", BoardID: "b1", QuestionID: "q6", Track: "rhythm", Slot: 5, IsBonus: true}})

	got, _ := store.ListItems(ctx, "b1")
	if len(got) != 1 || got[0].ID != "x1" {
		t.Fatalf("expected only the first bonus, got %+v", got)
	}
}

func TestItemStoreProofAndVerification(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore()
	_ = store.CreateItems(ctx, []domain.BoardItem{{ID: "i1", BoardID: "b1", QuestionID: "q1", Track: "rhythm"}})

	at := time.Date(2025, 8, 29, 10, 0, 0, 0, time.UTC)
	if err := store.RecordProof(ctx, "i1", "https://cdn/p.jpg", at); err != nil {
		t.Fatalf("record proof: %v", err)
	}
	if err := store.MarkVerified(ctx, "i1", "staff-1", at.Add(time.Hour)); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	it, _ := store.GetItem(ctx, "i1")
	if it.ProofRef != "https://cdn/p.jpg" || it.SubmittedAt == nil || !it.SubmittedAt.Equal(at) {
		t.Fatalf("proof not recorded: %+v", it)
	}
	if !it.Verified || it.VerifiedBy != "staff-1" || it.VerifiedAt == nil {
		t.Fatalf("verification not recorded: %+v", it)
	}
	if err := store.MarkVerified(ctx, "i1", "staff-2", at.Add(2*time.Hour)); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Fatalf("expected already verified, got %v", err)
	}
	if it, _ = store.GetItem(ctx, "i1"); it.VerifiedBy != "staff-1" || !it.VerifiedAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("expected first verification kept: %+v", it)
	}
	if err := store.RecordProof(ctx, "missing", "x", at); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestItemStoreConcurrentBatchesLandOnce(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make([]domain.BoardItem, 0, 4)
			for slot := 0; slot < 4; slot++ {
				batch = append(batch, domain.BoardItem{
					ID:         string(rune('a'+w)) + string(rune('0'+slot)),
					BoardID:    "b1",
					QuestionID: string(rune('a'+w)) + "q" + string(rune('0'+slot)),
					Track:      "rhythm",
					Slot:       slot,
				})
			}
			_ = store.CreateItems(ctx, batch)
		}(w)
	}
	wg.Wait()

	got, _ := store.ListItems(ctx, "b1")
	if len(got) != 4 {
		t.Fatalf("expected exactly one batch of 4, got %d", len(got))
	}
	owner := got[0].ID[0]
	for _, it := range got {
		if it.ID[0] != owner {
			t.Fatalf("expected items from a single batch, got %+v", got)
		}
	}
}

func TestArtifactStoreURL(t *testing.T) {
	store := NewArtifactStore("http://localhost:8080/proofs/")
	url, err := store.Put(context.Background(), "u1/i1/1.jpg", "image/jpeg", []byte("img"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://localhost:8080/proofs/u1/i1/1.jpg" {
		t.Fatalf("unexpected url %s", url)
	}
	obj, ok := store.Get("u1/i1/1.jpg")
	if !ok || string(obj.Data) != "img" || obj.ContentType != "image/jpeg" {
		t.Fatalf("unexpected stored object %+v", obj)
	}
}
