package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quest-board-service/internal/app"
)

const writeWait = 10 * time.Second

// WSHandler streams a board's events and refreshed progress to a participant.
type WSHandler struct {
	engine   *app.Engine
	events   app.EventBus
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, events app.EventBus, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		engine: engine,
		events: events,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and pushes "status" and "event" messages until
// the client goes away. Browsers cannot set headers on a websocket handshake,
// so the participant may also come from the participant query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	participantID := strings.TrimSpace(r.Header.Get(ParticipantHeader))
	if participantID == "" {
		participantID = strings.TrimSpace(r.URL.Query().Get("participant"))
	}
	if participantID == "" {
		http.Error(w, "missing participant", http.StatusUnauthorized)
		return
	}
	if h.events == nil {
		http.Error(w, "board feed unavailable", http.StatusServiceUnavailable)
		return
	}
	boardID := r.PathValue("id")

	status, err := h.engine.BoardStatus(r.Context(), participantID, boardID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	updates, cancel, err := h.events.Subscribe(r.Context(), boardID)
	if err != nil {
		h.log.WithError(err).WithField("board_id", boardID).Error("subscribe board feed")
		http.Error(w, "board feed unavailable", http.StatusServiceUnavailable)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).WithField("board_id", boardID).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "event", Payload: ev}}
				if progress, err := h.engine.BoardStatus(r.Context(), participantID, boardID); err == nil {
					msgs = append(msgs, outboundMessage[any]{Type: "status", Payload: progress})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "status", Payload: status}

	// The feed is push-only; reading detects the client closing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
