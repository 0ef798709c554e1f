package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/trainiq/internal/app"
	"github.com/ayusman/trainiq/internal/transport"
)

const (
	writeWait        = 5 * time.Second
	maxClientMessage = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type clientMessage struct {
	Type string `json:"type"`
}

type resetReply struct {
	Type  string  `json:"type"`
	Count float64 `json:"count"`
}

// WSHandler pushes a frame message to each client for every frame the
// app's frame loop produces. Clients may send {"type":"reset"} or
// {"type":"stats"}.
type WSHandler struct {
	app     *app.App
	encoder transport.Encoder
	log     *slog.Logger
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(a *app.App, enc transport.Encoder, log *slog.Logger) *WSHandler {
	return &WSHandler{app: a, encoder: enc, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	id, updates := h.app.Subscribe()
	defer h.app.Unsubscribe(id)

	// gorilla connections allow one writer; replies from the read loop are
	// written here too.
	replies := make(chan any, 4)
	done := make(chan struct{})
	go h.readLoop(conn, replies, done)

	for {
		select {
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, h.payload(u)); err != nil {
				h.log.Debug("websocket write", "err", err)
				return
			}
		case msg := <-replies:
			if err := h.write(conn, msg); err != nil {
				h.log.Debug("websocket write", "err", err)
				return
			}
		}
	}
}

func (h *WSHandler) payload(u app.Update) any {
	if u.Err != nil {
		return transport.NewErrorMessage(u.Err)
	}
	msg, err := transport.NewFrameMessage(u.Result, h.encoder)
	if err != nil {
		return transport.NewErrorMessage(err)
	}
	return msg
}

func (h *WSHandler) write(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (h *WSHandler) readLoop(conn *websocket.Conn, replies chan<- any, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxClientMessage)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply(replies, transport.ErrorMessage{Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "reset":
			state, err := h.app.Reset()
			if err != nil {
				reply(replies, transport.NewErrorMessage(err))
				continue
			}
			reply(replies, resetReply{Type: "reset", Count: state.Count})
		case "stats":
			stats, err := h.app.Stats()
			if err != nil {
				reply(replies, transport.NewErrorMessage(err))
				continue
			}
			reply(replies, transport.NewStatsMessage(stats))
		default:
			reply(replies, transport.ErrorMessage{Error: "unknown message type " + msg.Type})
		}
	}
}

func reply(replies chan<- any, v any) {
	select {
	case replies <- v:
	default:
	}
}
