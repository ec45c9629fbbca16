package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"pollboard/internal/session"
	"pollboard/pkg/types"
)

var upgrader = websocket.Upgrader{
	// All origins accepted: the room carries no credentials beyond a
	// declared display name.
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// Options tune connection heartbeats and buffering.
type Options struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	SendBuffer   int
}

// DefaultOptions returns heartbeat settings suited to classroom networks.
func DefaultOptions() Options {
	return Options{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		SendBuffer:   64,
	}
}

// Handler upgrades HTTP requests to websocket connections and pumps their
// events into the session coordinator. The read loop never touches shared
// state directly; everything goes through coordinator entry points.
type Handler struct {
	coordinator *session.Coordinator
	opts        Options
}

// NewHandler creates a websocket handler bound to the coordinator.
func NewHandler(coordinator *session.Coordinator, opts Options) *Handler {
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultOptions().PingInterval
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultOptions().ReadTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	return &Handler{coordinator: coordinator, opts: opts}
}

// HandleWebSocket upgrades the request and starts the connection's read
// pump. Identity arrives later via the join event, matching the reference
// protocol where a socket connects first and declares itself afterwards.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(ws, h.opts.SendBuffer)
	log.Debug().Str("conn", conn.ID()).Msg("websocket connected")

	go h.handleConnection(conn)
}

// handleConnection owns the connection lifecycle: heartbeat, read pump,
// and cleanup. Disconnect is reported to the coordinator exactly once, on
// the way out.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		if err := h.coordinator.Disconnect(conn.ID()); err != nil && err != session.ErrNotRunning {
			log.Warn().Err(err).Str("conn", conn.ID()).Msg("disconnect not applied")
		}
		_ = conn.Close()
		log.Debug().Str("conn", conn.ID()).Msg("websocket closed")
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	})

	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	joined := false
	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", conn.ID()).Msg("websocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		h.handleEvent(conn, data, &joined)
	}
}

// handleEvent decodes one client envelope and dispatches it. Malformed or
// out-of-order events are dropped without side effects: the coordinator
// must never see a request that failed boundary validation.
func (h *Handler) handleEvent(conn *Connection, data []byte, joined *bool) {
	var event types.ClientEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Debug().Err(err).Str("conn", conn.ID()).Msg("malformed client event dropped")
		return
	}

	// Everything except join requires a declared identity.
	if !*joined && event.Type != types.EventJoin {
		log.Debug().Str("conn", conn.ID()).Str("event", event.Type).Msg("event before join dropped")
		return
	}

	switch event.Type {
	case types.EventJoin:
		if *joined {
			return
		}
		var payload types.JoinPayload
		if !decode(conn, event, &payload) {
			return
		}
		if err := h.coordinator.Join(conn, payload.DisplayName, payload.Role); err != nil {
			log.Warn().Err(err).Str("conn", conn.ID()).Msg("join not applied")
			return
		}
		*joined = true

	case types.EventCreatePoll:
		var payload types.CreatePollPayload
		if !decode(conn, event, &payload) {
			return
		}
		h.dispatch(conn, event.Type, h.coordinator.CreatePoll(conn.ID(), payload))

	case types.EventSubmitAnswer:
		var payload types.SubmitAnswerPayload
		if !decode(conn, event, &payload) {
			return
		}
		h.dispatch(conn, event.Type, h.coordinator.SubmitAnswer(conn.ID(), payload))

	case types.EventEndPoll:
		h.dispatch(conn, event.Type, h.coordinator.EndPoll(conn.ID()))

	case types.EventKick:
		var payload types.KickPayload
		if !decode(conn, event, &payload) {
			return
		}
		h.dispatch(conn, event.Type, h.coordinator.Kick(conn.ID(), payload.DisplayName))

	case types.EventChat:
		var payload types.ChatPayload
		if !decode(conn, event, &payload) {
			return
		}
		h.dispatch(conn, event.Type, h.coordinator.Chat(conn.ID(), payload.Text))

	default:
		log.Debug().Str("conn", conn.ID()).Str("event", event.Type).Msg("unknown event type dropped")
	}
}

type validator interface {
	Validate() error
}

// decode unmarshals and validates an event payload.
func decode(conn *Connection, event types.ClientEvent, payload validator) bool {
	if err := json.Unmarshal(event.Payload, payload); err != nil {
		log.Debug().Err(err).Str("conn", conn.ID()).Str("event", event.Type).Msg("payload decode failed")
		return false
	}
	if err := payload.Validate(); err != nil {
		log.Debug().Err(err).Str("conn", conn.ID()).Str("event", event.Type).Msg("payload rejected")
		return false
	}
	return true
}

func (h *Handler) dispatch(conn *Connection, eventType string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("conn", conn.ID()).Str("event", eventType).Msg("request not applied")
	}
}
