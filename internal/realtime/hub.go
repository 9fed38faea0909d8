// Package realtime fans conversation events out to connected dashboard
// clients over WebSocket and SSE.
package realtime

import (
	"sync"

	"omnichat/internal/constants"
	"omnichat/internal/models"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventNewMessage     EventType = "new_message"
	EventMessageDeleted EventType = "message_deleted"
)

// Event is one realtime notification. Message is set for new_message,
// MessageID for message_deleted.
type Event struct {
	Type           EventType       `json:"type"`
	ConversationID string          `json:"conversationId"`
	IntegrationID  string          `json:"integrationId,omitempty"`
	Message        *models.Message `json:"message,omitempty"`
	MessageID      string          `json:"messageId,omitempty"`
}

// Hub distributes events to subscribers. Delivery is at-most-once: a
// subscriber whose buffer is full misses the event rather than blocking
// the ingestion path.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	logger      *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new client. The caller must call the returned
// cancel function when the client disconnects.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, constants.ClientEventBufferSize)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.WithFields(logrus.Fields{
				"type":           event.Type,
				"conversationId": event.ConversationID,
			}).Warn("Dropping event for slow realtime client")
		}
	}
}

// SubscriberCount is read by the health endpoint.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
