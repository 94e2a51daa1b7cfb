package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"quest-board-service/internal/app"
	"quest-board-service/internal/domain"
	"quest-board-service/internal/logger"
	"quest-board-service/internal/metrics"
)

// ParticipantHeader carries the caller identity set by the fronting gateway.
const ParticipantHeader = "X-Participant-ID"

// multipart framing allowance on top of the largest artifact ceiling
const uploadOverhead = 1 << 20

// Handler serves the participant-facing board API.
type Handler struct {
	engine   *app.Engine
	intake   *app.ProofIntake
	events   app.EventBus
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	validate *validator.Validate
	feed     *WSHandler
}

func NewHandler(engine *app.Engine, intake *app.ProofIntake, events app.EventBus, log logrus.FieldLogger, m *metrics.Metrics) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handler{
		engine:   engine,
		intake:   intake,
		events:   events,
		log:      log,
		metrics:  m,
		validate: validator.New(),
	}
	h.feed = NewWSHandler(engine, events, log)
	return h
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
	mux.HandleFunc("POST /boards", h.participant(h.ensureBoard))
	mux.HandleFunc("GET /boards", h.participant(h.listBoards))
	mux.HandleFunc("GET /boards/stats", h.participant(h.trackStats))
	mux.HandleFunc("GET /boards/{id}/items", h.participant(h.listItems))
	mux.HandleFunc("GET /boards/{id}/status", h.participant(h.boardStatus))
	mux.HandleFunc("POST /boards/{id}/bonus", h.participant(h.drawBonus))
	mux.HandleFunc("POST /items/{id}/proof", h.participant(h.submitProof))
	mux.HandleFunc("GET /ws/boards/{id}", h.feed.ServeWS)
}

type participantFunc func(w http.ResponseWriter, r *http.Request, participantID string)

func (h *Handler) participant(next participantFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(ParticipantHeader))
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, errorPayload{Message: "missing " + ParticipantHeader})
			return
		}
		next(w, r, id)
	}
}

type ensureBoardRequest struct {
	Track string `json:"track" validate:"required,max=64"`
	Day   int    `json:"day" validate:"omitempty,gte=1"`
}

func (h *Handler) ensureBoard(w http.ResponseWriter, r *http.Request, participantID string) {
	var req ensureBoardRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	var (
		board domain.Board
		err   error
	)
	if req.Day == 0 {
		board, err = h.engine.EnsureTodayBoard(r.Context(), participantID, req.Track)
	} else {
		board, err = h.engine.EnsureBoard(r.Context(), participantID, req.Track, req.Day)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) listBoards(w http.ResponseWriter, r *http.Request, participantID string) {
	boards, err := h.engine.ListBoards(r.Context(), participantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (h *Handler) trackStats(w http.ResponseWriter, r *http.Request, participantID string) {
	stats, err := h.engine.TrackStats(r.Context(), participantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request, participantID string) {
	items, err := h.engine.ListItems(r.Context(), participantID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) boardStatus(w http.ResponseWriter, r *http.Request, participantID string) {
	progress, err := h.engine.BoardStatus(r.Context(), participantID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type drawBonusRequest struct {
	Track string `json:"track" validate:"max=64"`
}

type bonusResponse struct {
	Created bool       `json:"created"`
	Item    *bonusItem `json:"item"`
}

type bonusItem struct {
	ID         string `json:"id"`
	Track      string `json:"track"`
	QuestionID string `json:"questionId"`
	IsBonus    bool   `json:"isBonus"`
}

func (h *Handler) drawBonus(w http.ResponseWriter, r *http.Request, participantID string) {
	var req drawBonusRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	res, err := h.engine.DrawBonus(r.Context(), participantID, r.PathValue("id"), req.Track)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := bonusResponse{Created: res.Created}
	if res.Item != nil {
		resp.Item = &bonusItem{ID: res.Item.ID, Track: res.Item.Track, QuestionID: res.Item.QuestionID, IsBonus: res.Item.IsBonus}
	}
	writeJSON(w, http.StatusOK, resp)
}

type proofResponse struct {
	OK        bool   `json:"ok"`
	StoredURL string `json:"storedUrl"`
}

func (h *Handler) submitProof(w http.ResponseWriter, r *http.Request, participantID string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.intake.Limits().VideoMaxBytes+uploadOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			h.writeError(w, r, h.bodyTooLarge(err))
			return
		}
		h.writeError(w, r, fmt.Errorf("%w: multipart field \"file\" required", errBadRequest))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, h.bodyTooLarge(err))
		return
	}
	ref, err := h.intake.Submit(r.Context(), participantID, r.PathValue("id"), domain.Artifact{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proofResponse{OK: true, StoredURL: ref})
}

func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return h.validate.Struct(v)
}

// bodyTooLarge reports a request cut off by MaxBytesReader against the largest
// artifact ceiling, so the response names the limit.
func (h *Handler) bodyTooLarge(err error) error {
	var maxBytes *http.MaxBytesError
	if !errors.As(err, &maxBytes) {
		return err
	}
	return &domain.PayloadTooLargeError{Kind: domain.ArtifactVideo, Limit: h.intake.Limits().VideoMaxBytes}
}
