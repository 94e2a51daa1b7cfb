package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"quest-board-service/internal/domain"
	"quest-board-service/internal/logger"
	"quest-board-service/internal/metrics"
)

// EngineConfig holds the game rules. Zero values are replaced by DefaultEngineConfig.
type EngineConfig struct {
	// BoardSize is the number of normal items drawn per board.
	BoardSize int
	// BonusLevel is the preferred difficulty for the bonus question.
	BonusLevel int
	// AutoBonus draws the bonus implicitly when items are listed on an eligible board.
	AutoBonus bool
}

// DefaultEngineConfig returns four normal missions and a level 3 bonus.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{BoardSize: 4, BonusLevel: 3}
}

// EngineDeps wires the engine to its collaborators. Events, Calendar, Logger, Metrics,
// Selector, Now and NewID are optional.
type EngineDeps struct {
	Boards   BoardStore
	Items    ItemStore
	Pool     QuestionPool
	Events   EventBus
	Calendar *domain.Calendar
	Selector *Selector
	Logger   logrus.FieldLogger
	Metrics  *metrics.Metrics
	Now      func() time.Time
	NewID    func() string
}

// Engine creates boards and their normal items idempotently and gates the bonus item.
// It takes no locks: every transition relies on store uniqueness and re-reads on conflict.
type Engine struct {
	boards   BoardStore
	items    ItemStore
	pool     QuestionPool
	events   EventBus
	calendar *domain.Calendar
	selector *Selector
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string
	cfg      EngineConfig

	ensures singleflight.Group
}

func NewEngine(deps EngineDeps, cfg EngineConfig) *Engine {
	def := DefaultEngineConfig()
	if cfg.BoardSize <= 0 {
		cfg.BoardSize = def.BoardSize
	}
	if cfg.BonusLevel <= 0 {
		cfg.BonusLevel = def.BonusLevel
	}
	e := &Engine{
		boards:   deps.Boards,
		items:    deps.Items,
		pool:     deps.Pool,
		events:   deps.Events,
		calendar: deps.Calendar,
		selector: deps.Selector,
		log:      deps.Logger,
		metrics:  deps.Metrics,
		now:      deps.Now,
		newID:    deps.NewID,
		cfg:      cfg,
	}
	if e.selector == nil {
		e.selector = NewSelector(nil)
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// Today returns the current event day number.
func (e *Engine) Today() (int, error) {
	if e.calendar == nil {
		return 0, fmt.Errorf("event calendar not configured: %w", domain.ErrOutsideEvent)
	}
	return e.calendar.Today(e.now())
}

// EnsureTodayBoard is EnsureBoard for the current event day.
func (e *Engine) EnsureTodayBoard(ctx context.Context, ownerID, track string) (domain.Board, error) {
	day, err := e.Today()
	if err != nil {
		return domain.Board{}, err
	}
	return e.EnsureBoard(ctx, ownerID, track, day)
}

// EnsureBoard finds or creates the owner's board for (track, day) and its normal items.
// Repeated calls return the same board and never touch an existing normal set.
func (e *Engine) EnsureBoard(ctx context.Context, ownerID, track string, day int) (domain.Board, error) {
	if e.calendar != nil {
		if _, err := e.calendar.Check(day); err != nil {
			return domain.Board{}, err
		}
	}
	// Collapse concurrent in-process requests; cross-process races are settled by the store.
	key := ownerID + "\x00" + track + "\x00" + strconv.Itoa(day)
	// The shared call outlives any single caller; each caller stops waiting on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := e.ensures.DoChan(key, func() (interface{}, error) {
		board, err := e.findOrCreateBoard(shared, ownerID, track, day)
		if err != nil {
			return domain.Board{}, err
		}
		if _, err := e.ensureNormals(shared, board); err != nil {
			return domain.Board{}, err
		}
		return board, nil
	})
	select {
	case <-ctx.Done():
		return domain.Board{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Board{}, res.Err
		}
		return res.Val.(domain.Board), nil
	}
}

func (e *Engine) findOrCreateBoard(ctx context.Context, ownerID, track string, day int) (domain.Board, error) {
	board, err := e.boards.FindBoard(ctx, ownerID, track, day)
	if err == nil {
		return board, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Board{}, err
	}

	board = domain.Board{
		ID:        e.newID(),
		OwnerID:   ownerID,
		Track:     track,
		Day:       day,
		Status:    domain.BoardStatusOpen,
		CreatedAt: e.now(),
	}
	err = e.boards.CreateBoard(ctx, board)
	switch {
	case err == nil:
		e.metrics.BoardCreated()
		e.log.WithFields(logrus.Fields{"board_id": board.ID, "owner_id": ownerID, "track": track, "day": day}).
			Info("board created")
		return board, nil
	case errors.Is(err, domain.ErrConflict):
		e.metrics.ConflictResolved("board")
		e.log.WithFields(logrus.Fields{"owner_id": ownerID, "track": track, "day": day}).
			Debug("board created concurrently, re-reading")
		return e.boards.FindBoard(ctx, ownerID, track, day)
	default:
		return domain.Board{}, err
	}
}

// ensureNormals draws the board's normal items unless some already exist.
func (e *Engine) ensureNormals(ctx context.Context, board domain.Board) ([]domain.BoardItem, error) {
	items, err := e.items.ListItems(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	if normals := normalItems(items, board.Track); len(normals) > 0 {
		return normals, nil
	}

	questions, err := e.pool.TrackQuestions(ctx, board.Track)
	if err != nil {
		return nil, err
	}
	picked, err := e.selector.Draw(questions, board.Track, e.cfg.BoardSize, nil)
	if err != nil {
		return nil, err
	}

	fresh := make([]domain.BoardItem, 0, len(picked))
	for slot, q := range picked {
		fresh = append(fresh, domain.BoardItem{
			ID:         e.newID(),
			BoardID:    board.ID,
			QuestionID: q.ID,
			Track:      board.Track,
			Slot:       slot,
		})
	}
	if err := e.items.CreateItems(ctx, fresh); err != nil {
		return nil, err
	}

	// A concurrent creator may have won some or all slots; the store has the truth.
	items, err = e.items.ListItems(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	normals := normalItems(items, board.Track)
	if len(normals) > 0 && normals[0].ID != fresh[0].ID {
		e.metrics.ConflictResolved("items")
		e.log.WithField("board_id", board.ID).Debug("normal items created concurrently, kept stored set")
	}
	return normals, nil
}

// DrawBonus grants the single bonus item of (board, track) once every normal item is verified.
// An existing bonus is returned with Created=false. ownerID may be empty for trusted callers.
func (e *Engine) DrawBonus(ctx context.Context, ownerID, boardID, track string) (domain.BonusResult, error) {
	board, err := e.ownedBoard(ctx, ownerID, boardID)
	if err != nil {
		return domain.BonusResult{}, err
	}
	if track == "" {
		track = board.Track
	}

	res, err := e.drawBonus(ctx, board, track)
	switch {
	case err == nil && res.Created:
		e.metrics.BonusDraw("created")
	case err == nil:
		e.metrics.BonusDraw("already_drawn")
	case errors.Is(err, domain.ErrNotEligible):
		e.metrics.BonusDraw("not_eligible")
	case errors.Is(err, domain.ErrInsufficientPool):
		e.metrics.BonusDraw("insufficient_pool")
	}
	return res, err
}

func (e *Engine) drawBonus(ctx context.Context, board domain.Board, track string) (domain.BonusResult, error) {
	items, err := e.items.ListItems(ctx, board.ID)
	if err != nil {
		return domain.BonusResult{}, err
	}
	if bonus, ok := bonusItem(items, track); ok {
		return domain.BonusResult{Created: false, Item: &bonus}, nil
	}

	normals := normalItems(items, track)
	if !allVerified(normals) {
		return domain.BonusResult{}, domain.ErrNotEligible
	}

	questions, err := e.pool.TrackQuestions(ctx, track)
	if err != nil {
		return domain.BonusResult{}, err
	}
	used := make(map[string]struct{}, len(items))
	for _, it := range items {
		used[it.QuestionID] = struct{}{}
	}
	picked, err := e.drawPreferringLevel(questions, track, used)
	if err != nil {
		return domain.BonusResult{}, err
	}

	candidate := domain.BoardItem{
		ID:         e.newID(),
		BoardID:    board.ID,
		QuestionID: picked.ID,
		Track:      track,
		Slot:       len(normals),
		IsBonus:    true,
	}
	if err := e.items.CreateItems(ctx, []domain.BoardItem{candidate}); err != nil {
		return domain.BonusResult{}, err
	}

	// Two eligible callers may race here; the store keeps exactly one bonus and the loser reads it back.
	items, err = e.items.ListItems(ctx, board.ID)
	if err != nil {
		return domain.BonusResult{}, err
	}
	stored, ok := bonusItem(items, track)
	if !ok {
		return domain.BonusResult{}, fmt.Errorf("bonus for board %s vanished after insert", board.ID)
	}
	if stored.ID != candidate.ID {
		e.metrics.ConflictResolved("bonus")
		e.log.WithField("board_id", board.ID).Debug("bonus drawn concurrently, kept stored item")
		return domain.BonusResult{Created: false, Item: &stored}, nil
	}

	e.log.WithFields(logrus.Fields{"board_id": board.ID, "item_id": stored.ID, "question_id": stored.QuestionID}).
		Info("bonus drawn")
	e.publish(ctx, domain.BoardEvent{BoardID: board.ID, ItemID: stored.ID, Type: domain.EventBonusDrawn, At: e.now()})
	return domain.BonusResult{Created: true, Item: &stored}, nil
}

// drawPreferringLevel picks one unused question at the bonus level, falling back to any unused one.
func (e *Engine) drawPreferringLevel(questions []domain.Question, track string, used map[string]struct{}) (domain.Question, error) {
	preferred := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.Level == e.cfg.BonusLevel {
			preferred = append(preferred, q)
		}
	}
	picked, err := e.selector.Draw(preferred, track, 1, used)
	if errors.Is(err, domain.ErrInsufficientPool) {
		picked, err = e.selector.Draw(questions, track, 1, used)
	}
	if err != nil {
		return domain.Question{}, err
	}
	return picked[0], nil
}

// ListItems returns the board's items joined with their questions.
func (e *Engine) ListItems(ctx context.Context, ownerID, boardID string) ([]domain.ItemView, error) {
	board, err := e.ownedBoard(ctx, ownerID, boardID)
	if err != nil {
		return nil, err
	}
	if e.cfg.AutoBonus {
		e.autoBonus(ctx, board)
	}

	items, err := e.items.ListItems(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	questions, err := e.pool.TrackQuestions(ctx, board.Track)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	views := make([]domain.ItemView, 0, len(items))
	for _, it := range items {
		q := byID[it.QuestionID]
		views = append(views, domain.ItemView{
			ID:            it.ID,
			Track:         it.Track,
			IsBonus:       it.IsBonus,
			ProofRef:      it.ProofRef,
			SubmittedAt:   it.SubmittedAt,
			Verified:      it.Verified,
			QuestionText:  q.Text,
			QuestionLevel: q.Level,
		})
	}
	return views, nil
}

func (e *Engine) autoBonus(ctx context.Context, board domain.Board) {
	_, err := e.DrawBonus(ctx, "", board.ID, board.Track)
	if err == nil || errors.Is(err, domain.ErrNotEligible) || errors.Is(err, domain.ErrInsufficientPool) {
		return
	}
	e.log.WithError(err).WithField("board_id", board.ID).Warn("automatic bonus draw failed")
}

// BoardStatus derives the lifecycle state of the board's own track from its items.
func (e *Engine) BoardStatus(ctx context.Context, ownerID, boardID string) (domain.BoardProgress, error) {
	board, err := e.ownedBoard(ctx, ownerID, boardID)
	if err != nil {
		return domain.BoardProgress{}, err
	}
	items, err := e.items.ListItems(ctx, board.ID)
	if err != nil {
		return domain.BoardProgress{}, err
	}

	normals := normalItems(items, board.Track)
	_, hasBonus := bonusItem(items, board.Track)
	progress := domain.BoardProgress{BoardID: board.ID, Track: board.Track, Total: len(normals), Bonus: hasBonus}
	for _, it := range normals {
		if it.Verified {
			progress.Verified++
		}
	}
	switch {
	case len(normals) == 0:
		progress.State = domain.StateEmpty
	case hasBonus:
		progress.State = domain.StateBonusDrawn
	case allVerified(normals):
		progress.State = domain.StateNormalsComplete
	default:
		progress.State = domain.StateNormalsPending
	}
	return progress, nil
}

// ListBoards returns the owner's boards, newest first.
func (e *Engine) ListBoards(ctx context.Context, ownerID string) ([]domain.Board, error) {
	return e.boards.ListBoards(ctx, ownerID)
}

// TrackStats counts the owner's boards per track.
func (e *Engine) TrackStats(ctx context.Context, ownerID string) (map[string]int, error) {
	boards, err := e.boards.ListBoards(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int)
	for _, b := range boards {
		track := b.Track
		if track == "" {
			track = "unknown"
		}
		stats[track]++
	}
	return stats, nil
}

// ownedBoard hides boards of other participants behind ErrNotFound.
func (e *Engine) ownedBoard(ctx context.Context, ownerID, boardID string) (domain.Board, error) {
	board, err := e.boards.GetBoard(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	if ownerID != "" && board.OwnerID != ownerID {
		return domain.Board{}, domain.ErrNotFound
	}
	return board, nil
}

func (e *Engine) publish(ctx context.Context, event domain.BoardEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, event); err != nil {
		e.log.WithError(err).WithField("board_id", event.BoardID).Warn("publish board event")
	}
}

func normalItems(items []domain.BoardItem, track string) []domain.BoardItem {
	out := make([]domain.BoardItem, 0, len(items))
	for _, it := range items {
		if !it.IsBonus && it.Track == track {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func bonusItem(items []domain.BoardItem, track string) (domain.BoardItem, bool) {
	for _, it := range items {
		if it.IsBonus && it.Track == track {
			return it, true
		}
	}
	return domain.BoardItem{}, false
}

// allVerified is false for an empty set: a board without normals never unlocks a bonus.
func allVerified(normals []domain.BoardItem) bool {
	if len(normals) == 0 {
		return false
	}
	for _, it := range normals {
		if !it.Verified {
			return false
		}
	}
	return true
}
