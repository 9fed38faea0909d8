package models

import (
	"strings"
)

// Webhook event types delivered by the channel providers
const (
	EventMessagesUpsert = "messages.upsert"
	EventMessagesUpdate = "messages.update"
	EventMessagesDelete = "messages.delete"
	EventConnection     = "connection.update"
)

// InboundEvent is the provider webhook envelope
type InboundEvent struct {
	Type     string    `json:"type"`
	Instance string    `json:"instance"`
	Data     EventData `json:"data"`
}

// EventData carries the message-level payload of an upsert event. State is
// only populated on connection.update events.
type EventData struct {
	Key      MessageKey      `json:"key"`
	PushName string          `json:"pushName,omitempty"`
	Message  *MessageContent `json:"message,omitempty"`
	State    string          `json:"state,omitempty"`
}

// MessageKey identifies the message and its source chat
type MessageKey struct {
	RemoteJID    string `json:"remoteJid"`
	RemoteJIDAlt string `json:"remoteJidAlt,omitempty"`
	FromMe       bool   `json:"fromMe"`
	ID           string `json:"id,omitempty"`
}

// MessageContent is the provider-specific union of payload shapes. Exactly
// one branch is expected to be populated per event.
type MessageContent struct {
	Conversation        string           `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedText    `json:"extendedTextMessage,omitempty"`
	ImageMessage        *MediaPayload    `json:"imageMessage,omitempty"`
	AudioMessage        *AudioPayload    `json:"audioMessage,omitempty"`
	VideoMessage        *MediaPayload    `json:"videoMessage,omitempty"`
	DocumentMessage     *DocumentPayload `json:"documentMessage,omitempty"`
}

type ExtendedText struct {
	Text string `json:"text"`
}

type MediaPayload struct {
	URL        string `json:"url"`
	MimeType   string `json:"mimetype,omitempty"`
	Caption    string `json:"caption,omitempty"`
	FileLength int64  `json:"fileLength,omitempty"`
}

type AudioPayload struct {
	URL        string `json:"url"`
	MimeType   string `json:"mimetype,omitempty"`
	FileLength int64  `json:"fileLength,omitempty"`
	PTT        bool   `json:"ptt,omitempty"`
}

type DocumentPayload struct {
	URL        string `json:"url"`
	MimeType   string `json:"mimetype,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	Caption    string `json:"caption,omitempty"`
	FileLength int64  `json:"fileLength,omitempty"`
}

// ExtractContent collapses the payload union into text plus an optional
// media descriptor. This is the single match point over the union; callers
// must not branch on the raw shapes again.
func ExtractContent(mc *MessageContent) (text string, media *Media) {
	if mc == nil {
		return "", nil
	}

	switch {
	case mc.Conversation != "":
		return mc.Conversation, nil

	case mc.ExtendedTextMessage != nil:
		return mc.ExtendedTextMessage.Text, nil

	case mc.ImageMessage != nil:
		m := mc.ImageMessage
		return m.Caption, &Media{
			Type:      MediaImage,
			URL:       m.URL,
			MimeType:  m.MimeType,
			SizeBytes: m.FileLength,
			Caption:   m.Caption,
		}

	case mc.AudioMessage != nil:
		m := mc.AudioMessage
		mediaType := MediaAudio
		if m.PTT {
			mediaType = MediaVoice
		}
		return "", &Media{
			Type:      mediaType,
			URL:       m.URL,
			MimeType:  m.MimeType,
			SizeBytes: m.FileLength,
		}

	case mc.VideoMessage != nil:
		m := mc.VideoMessage
		return m.Caption, &Media{
			Type:      MediaVideo,
			URL:       m.URL,
			MimeType:  m.MimeType,
			SizeBytes: m.FileLength,
			Caption:   m.Caption,
		}

	case mc.DocumentMessage != nil:
		m := mc.DocumentMessage
		return m.Caption, &Media{
			Type:      MediaDocument,
			URL:       m.URL,
			MimeType:  m.MimeType,
			Filename:  m.FileName,
			SizeBytes: m.FileLength,
			Caption:   m.Caption,
		}
	}

	return "", nil
}

// IsGroupJID reports whether the identifier addresses a group, broadcast or
// channel-style chat rather than a 1:1 conversation.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, "@g.us") ||
		strings.HasSuffix(jid, "@broadcast") ||
		strings.HasSuffix(jid, "@newsletter")
}

// WebhookStatus is the outcome class of one webhook delivery
type WebhookStatus string

const (
	WebhookIgnored   WebhookStatus = "ignored"
	WebhookProcessed WebhookStatus = "processed"
	WebhookError     WebhookStatus = "error"
)

// WebhookResult is the idempotent acknowledgment returned to the provider
type WebhookResult struct {
	Status WebhookStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}
