package models

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation. Only OPEN is
// meaningful to the messaging core; PENDING/RESOLVED transitions are driven
// by the external CRUD surface.
type ConversationStatus string

const (
	ConversationOpen     ConversationStatus = "OPEN"
	ConversationPending  ConversationStatus = "PENDING"
	ConversationResolved ConversationStatus = "RESOLVED"
)

// Conversation is the unit of reconciliation: at most one row per
// (contact, integration) pair may be OPEN at any time.
type Conversation struct {
	ID            string             `json:"id"`
	ContactID     string             `json:"contact_id"`
	IntegrationID string             `json:"integration_id"`
	Platform      Platform           `json:"platform"`
	Status        ConversationStatus `json:"status"`
	AgentID       *string            `json:"agent_id,omitempty"`
	UnreadCount   int                `json:"unread_count"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// AgentDrifted reports whether the conversation's agent binding no longer
// matches the integration's current binding.
func (c *Conversation) AgentDrifted(desired *string) bool {
	if c.AgentID == nil && desired == nil {
		return false
	}
	if c.AgentID == nil || desired == nil {
		return true
	}
	return *c.AgentID != *desired
}
