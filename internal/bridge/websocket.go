package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nugget/cogflow/cog"
)

// WebSocketTap is an HTTP server that, per connection, subscribes a
// fresh Sliding1 channel to a broadcast source and streams every value
// to the browser as a WebSocket text frame, unsubscribing on disconnect
// — the literal "a cog is also a broadcast source that playback can tap"
// line from spec.md §1. Grounded on the donor's
// internal/homeassistant/websocket.go connection-lifecycle handling,
// adapted from client-side to server-side and from typed HA events to
// opaque JSON-encoded cog output.
type WebSocketTap struct {
	source   *cog.Broadcast
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketTap creates a tap streaming values broadcast by source.
func NewWebSocketTap(source *cog.Broadcast, logger *slog.Logger) *WebSocketTap {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketTap{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and streams
// broadcast output to it until the client disconnects or the source
// ends. A Sliding1 subscription means a slow browser sees the latest
// value rather than stalling the broadcast for every other subscriber.
func (t *WebSocketTap) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warn("bridge: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	tap := cog.NewChannel(cog.Sliding1())
	sub := t.source.Subscribe(tap, true)
	defer t.source.Unsubscribe(sub)

	t.logger.Debug("bridge: websocket client connected", "remote", r.RemoteAddr)

	// A reader goroutine drains (and discards) client frames purely to
	// detect disconnects — gorilla/websocket requires reads to happen
	// for control frames (ping/close) to be processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			t.logger.Debug("bridge: websocket client disconnected", "remote", r.RemoteAddr)
			return
		default:
		}

		v, ok := tap.Receive()
		if !ok {
			return
		}
		payload, err := json.Marshal(envelope{Value: v})
		if err != nil {
			t.logger.Warn("bridge: could not encode tap value", "error", err)
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			t.logger.Debug("bridge: websocket write failed", "error", err)
			return
		}
	}
}

// envelope is the JSON shape written to the browser. Error envelopes
// serialize like any other value — consumers distinguish them by the
// "Kind" field, matching the error-envelope contract in cog.ErrorEnvelope.
type envelope struct {
	Value any `json:"value"`
}
