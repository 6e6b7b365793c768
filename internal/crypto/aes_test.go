package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	c, err := NewCodec("some-short-key")
	require.NoError(t, err)

	enc, err := c.Encrypt("483921")
	require.NoError(t, err)
	assert.NotContains(t, enc, "483921")

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "483921", dec)
}

func TestCodecFreshNoncePerCall(t *testing.T) {
	c, err := NewCodec("some-short-key")
	require.NoError(t, err)

	a, err := c.Encrypt("123456")
	require.NoError(t, err)
	b, err := c.Encrypt("123456")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCodecRejectsTamperedCiphertext(t *testing.T) {
	c, err := NewCodec("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	enc, err := c.Encrypt("654321")
	require.NoError(t, err)

	tampered := enc[:len(enc)-2] + "00"
	if tampered == enc {
		tampered = enc[:len(enc)-2] + "11"
	}
	_, err = c.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)

	for _, bad := range []string{"", "nocolon", "zz:zz", "aabb:zz"} {
		_, err := c.Decrypt(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewCodecRequiresKey(t *testing.T) {
	_, err := NewCodec("")
	assert.Error(t, err)
}
