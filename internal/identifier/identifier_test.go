package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhone(t *testing.T) {
	id, err := NewPhone("+1 (555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, Phone, id.Kind)
	assert.Equal(t, "+15551234567", id.Value)

	_, err = NewPhone("12ab")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewEmail(t *testing.T) {
	id, err := NewEmail("  Ada@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, Email, id.Kind)
	assert.Equal(t, "ada@example.com", id.Value)

	for _, bad := range []string{"", "nope", "@x.com", "a@", "a@b"} {
		_, err := NewEmail(bad)
		assert.Error(t, err, bad)
	}
}

func TestFromRequest(t *testing.T) {
	id, err := FromRequest("", "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, Phone, id.Kind)

	// phone wins when both are present
	id, err = FromRequest("ada@example.com", "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, Phone, id.Kind)

	_, err = FromRequest("", "")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestStorageKey(t *testing.T) {
	id := Identifier{Kind: Phone, Value: "+15551234567"}
	assert.Equal(t, "otp:phone:+15551234567", id.StorageKey("otp:"))
}

func TestEqual(t *testing.T) {
	a := Identifier{Kind: Email, Value: "ada@example.com"}
	b := Identifier{Kind: Email, Value: "ada@example.com"}
	c := Identifier{Kind: Phone, Value: "+15551234567"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
