package models

import (
	"strings"
	"time"
)

// IntegrationType selects the concrete channel adapter
type IntegrationType string

const (
	IntegrationEvolution IntegrationType = "EVOLUTION"
	IntegrationWAHA      IntegrationType = "WAHA"
)

// IntegrationStatus is the connection state of a channel binding
type IntegrationStatus string

const (
	IntegrationConnected    IntegrationStatus = "CONNECTED"
	IntegrationDisconnected IntegrationStatus = "DISCONNECTED"
	IntegrationError        IntegrationStatus = "ERROR"
)

// Integration is a configured binding to one external channel instance.
// It is created by the integration-management surface; the messaging core
// reads it and only mutates Status (auth failures) and CallbackURL.
type Integration struct {
	ID           string            `json:"id"`
	Type         IntegrationType   `json:"type"`
	Name         string            `json:"name"`
	InstanceName string            `json:"instance_name"`
	BaseURL      string            `json:"base_url"`
	APIKey       string            `json:"api_key,omitempty"`
	AgentID      *string           `json:"agent_id,omitempty"`
	Status       IntegrationStatus `json:"status"`
	CallbackURL  string            `json:"callback_url,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Platform returns the contact platform served by this integration type
func (i *Integration) Platform() Platform {
	return PlatformWhatsApp
}

// MatchesInstance reports whether a webhook instance identifier addresses
// this integration, either by the stored instance name or by a normalized
// comparison against the display name.
func (i *Integration) MatchesInstance(instance string) bool {
	if i.InstanceName != "" && i.InstanceName == instance {
		return true
	}
	return NormalizeInstanceName(i.Name) == NormalizeInstanceName(instance)
}

// NormalizeInstanceName lowers and strips separators so display names and
// provider instance identifiers compare loosely.
func NormalizeInstanceName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "")
	return replacer.Replace(name)
}
