// Package identity normalizes channel-native identifiers into canonical
// contact identities. Resolution is pure: no network or storage access.
package identity

import (
	"errors"
	"strings"

	"omnichat/internal/constants"
	"omnichat/internal/models"
)

// ErrUnresolved is returned when no dialable phone number can be extracted
// from the provided identifiers. Callers persist the contact with the
// unresolved sentinel rather than dropping the event.
var ErrUnresolved = errors.New("identity: no dialable number in identifiers")

// relaySuffix marks provider-internal routing ids. They are not phone
// numbers and must never be persisted as Contact.Phone.
const relaySuffix = "@lid"

// Identity is the canonical form of a channel-native identifier
type Identity struct {
	Phone       string
	Platform    models.Platform
	CanonicalID string
}

// Resolver extracts canonical identities using a configured default country
// prefix for local-length numbers.
type Resolver struct {
	countryCode string
}

func NewResolver(countryCode string) *Resolver {
	if countryCode == "" {
		countryCode = constants.DefaultCountryCode
	}
	return &Resolver{countryCode: countryCode}
}

// Resolve picks the best source identifier, rejects relay-only ids and
// normalizes the remainder into an E.164-like digit string. The alternate
// identifier is preferred over the primary when present.
func (r *Resolver) Resolve(primaryID, alternateID string) (Identity, error) {
	source := pickSource(primaryID, alternateID)
	if source == "" {
		// Both identifiers are relay-only or empty.
		canonical := alternateID
		if canonical == "" {
			canonical = primaryID
		}
		return Identity{
			Platform:    detectPlatform(canonical),
			CanonicalID: canonical,
		}, ErrUnresolved
	}

	identity := Identity{
		Platform:    detectPlatform(source),
		CanonicalID: source,
	}

	phone, ok := r.normalizePhone(source)
	if !ok {
		return identity, ErrUnresolved
	}

	identity.Phone = phone
	return identity, nil
}

// pickSource prefers the alternate id, falling back across relay-only ids.
// Returns "" when no usable source exists.
func pickSource(primaryID, alternateID string) string {
	for _, id := range []string{alternateID, primaryID} {
		if id != "" && !IsRelayID(id) {
			return id
		}
	}
	return ""
}

// IsRelayID reports whether the identifier is a non-addressable relay id
func IsRelayID(id string) bool {
	return strings.HasSuffix(id, relaySuffix)
}

// normalizePhone strips channel and device suffixes, reduces to digits and
// applies the default country prefix to local-length numbers.
func (r *Resolver) normalizePhone(id string) (string, bool) {
	// Channel suffix, e.g. "@s.whatsapp.net" or "@c.us"
	if at := strings.Index(id, "@"); at >= 0 {
		id = id[:at]
	}
	// Device sub-address, e.g. "5511999990001:5"
	if colon := strings.Index(id, ":"); colon >= 0 {
		id = id[:colon]
	}

	var digits strings.Builder
	for _, ch := range id {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	phone := digits.String()

	if len(phone) < constants.MinPhoneDigits || len(phone) > constants.MaxPhoneDigits {
		return "", false
	}

	if !strings.HasPrefix(phone, r.countryCode) && len(phone) <= constants.MaxLocalPhoneDigits {
		phone = r.countryCode + phone
	}

	return phone, true
}

func detectPlatform(id string) models.Platform {
	if strings.Contains(id, "@") || startsWithDigit(id) {
		return models.PlatformWhatsApp
	}
	return models.PlatformInstagram
}

func startsWithDigit(id string) bool {
	if id == "" {
		return false
	}
	return id[0] >= '0' && id[0] <= '9'
}
