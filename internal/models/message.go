package models

import (
	"time"
)

// SenderType classifies who produced a message
type SenderType string

const (
	SenderUser   SenderType = "USER"
	SenderAgent  SenderType = "AGENT"
	SenderSystem SenderType = "SYSTEM"
)

// MediaType is the kind of media attached to a message
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaAudio    MediaType = "audio"
	MediaVoice    MediaType = "voice"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

// Media describes an attachment by reference; the binary stays with the provider
type Media struct {
	Type      MediaType `json:"type"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	Caption   string    `json:"caption,omitempty"`
}

// Message is immutable once created, except administrative delete.
// Ordering within a conversation is by CreatedAt ascending.
type Message struct {
	ID                string     `json:"id"`
	ConversationID    string     `json:"conversation_id"`
	Sender            SenderType `json:"sender"`
	Text              string     `json:"text"`
	Media             *Media     `json:"media,omitempty"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
