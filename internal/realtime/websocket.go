package realtime

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler upgrades dashboard connections and streams hub events
// until the client goes away.
type WebSocketHandler struct {
	hub    *Hub
	logger *logrus.Logger
}

func NewWebSocketHandler(hub *Hub, logger *logrus.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "stream ended")
	}()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	ctx := r.Context()
	// Read loop only to notice the peer closing; inbound frames are ignored.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal realtime event")
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
