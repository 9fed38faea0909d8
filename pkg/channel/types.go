// Package channel defines the contract every messaging provider client
// implements. The gateway and dispatcher only ever talk to an Adapter,
// never to a concrete provider type.
package channel

import "context"

// ConnectionState reports whether a provider instance can deliver messages.
type ConnectionState string

const (
	StateConnected    ConnectionState = "CONNECTED"
	StateDisconnected ConnectionState = "DISCONNECTED"
	StateConnecting   ConnectionState = "CONNECTING"
	StateUnknown      ConnectionState = "UNKNOWN"
)

// MediaItem is one outbound attachment. URL points at publicly fetchable
// content; providers download it themselves.
type MediaItem struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// SendResult carries the provider-assigned id of a delivered message.
type SendResult struct {
	MessageID string
}

// Adapter abstracts a single provider instance. Target is the provider's
// native address for the recipient (a phone number or chat id).
type Adapter interface {
	SendText(ctx context.Context, target, text string) (*SendResult, error)
	SendMedia(ctx context.Context, target string, item MediaItem) (*SendResult, error)
	FetchConnectionState(ctx context.Context) (ConnectionState, error)
	SetCallbackURL(ctx context.Context, url string) error
	CreateSession(ctx context.Context) error
	DeleteSession(ctx context.Context) error
}
