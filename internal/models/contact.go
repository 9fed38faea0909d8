package models

import (
	"time"
)

// Platform identifies the channel a contact lives on
type Platform string

const (
	PlatformWhatsApp  Platform = "WHATSAPP"
	PlatformInstagram Platform = "INSTAGRAM"
)

// PhoneUnresolved is the sentinel stored when no dialable number could be
// extracted from the channel identifiers. Message persistence proceeds with
// it so inbound data is never dropped.
const PhoneUnresolved = "unresolved"

// Contact represents a person on one channel. Identity is unique on
// (platform, platform-native id); the phone, when present, is a
// country-code-normalized digit string.
type Contact struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Platform   Platform  `json:"platform"`
	PlatformID string    `json:"platform_id"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasPhone reports whether a dialable number is known for the contact
func (c *Contact) HasPhone() bool {
	return c.Phone != "" && c.Phone != PhoneUnresolved
}

// DisplayName returns the best available name for UI previews
func (c *Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.HasPhone() {
		return c.Phone
	}
	return c.PlatformID
}
