package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"omnichat/internal/constants"

	"github.com/sirupsen/logrus"
)

// SSEHandler streams hub events as Server-Sent Events for clients that
// cannot hold a WebSocket open.
type SSEHandler struct {
	hub    *Hub
	logger *logrus.Logger
}

func NewSSEHandler(hub *Hub, logger *logrus.Logger) *SSEHandler {
	return &SSEHandler{hub: hub, logger: logger}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server's write timeout, so lift the
	// connection's write deadline for this response.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.WithError(err).Debug("Could not clear write deadline for event stream")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(time.Duration(constants.SSEKeepAliveSec) * time.Second)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal realtime event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
