package identifier

import (
	"errors"
	"fmt"
	"strings"
)

// Kind distinguishes the two contact channels a signup can be anchored to.
type Kind string

const (
	Phone Kind = "phone"
	Email Kind = "email"
)

var (
	ErrEmpty   = errors.New("identifier is empty")
	ErrInvalid = errors.New("invalid identifier")
)

// Identifier is a phone number or email address. Exactly one kind is active
// per value; all session-store keys and channel selection derive from it.
type Identifier struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// NewPhone normalizes a phone number to a +-prefixed digit string.
func NewPhone(raw string) (Identifier, error) {
	var sb strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	digits := sb.String()
	if len(digits) < 7 || len(digits) > 15 {
		return Identifier{}, fmt.Errorf("%w: phone %q", ErrInvalid, raw)
	}
	return Identifier{Kind: Phone, Value: "+" + digits}, nil
}

// NewEmail lowercases and trims an email address.
func NewEmail(raw string) (Identifier, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	at := strings.Index(v, "@")
	if at <= 0 || at == len(v)-1 || !strings.Contains(v[at:], ".") {
		return Identifier{}, fmt.Errorf("%w: email %q", ErrInvalid, raw)
	}
	return Identifier{Kind: Email, Value: v}, nil
}

// FromRequest picks exactly one of email/phone from a request body.
func FromRequest(email, phone string) (Identifier, error) {
	switch {
	case phone != "":
		return NewPhone(phone)
	case email != "":
		return NewEmail(email)
	default:
		return Identifier{}, ErrEmpty
	}
}

func (id Identifier) IsZero() bool { return id.Value == "" }

// StorageKey scopes session-store entries to this identifier.
func (id Identifier) StorageKey(prefix string) string {
	return prefix + string(id.Kind) + ":" + id.Value
}

func (id Identifier) String() string {
	return string(id.Kind) + ":" + id.Value
}

// Equal reports whether two identifiers refer to the same contact.
func (id Identifier) Equal(other Identifier) bool {
	return id.Kind == other.Kind && id.Value == other.Value
}
