package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insport-app/auth-service/internal/identifier"
)

func TestIssueAndVerify(t *testing.T) {
	s, err := NewSigner("test-secret", 30*time.Minute)
	require.NoError(t, err)

	id := identifier.Identifier{Kind: identifier.Phone, Value: "+15551234567"}
	signed, err := s.Issue(id, "otp_verified")
	require.NoError(t, err)

	claims, err := s.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "otp_verified", claims.Step)
	assert.True(t, claims.Identifier().Equal(id))
}

func TestVerifyExpired(t *testing.T) {
	s, err := NewSigner("test-secret", -time.Minute)
	require.NoError(t, err)

	signed, err := s.Issue(identifier.Identifier{Kind: identifier.Email, Value: "a@b.co"}, "otp_sent")
	require.NoError(t, err)

	_, err = s.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	a, err := NewSigner("secret-a", time.Minute)
	require.NoError(t, err)
	b, err := NewSigner("secret-b", time.Minute)
	require.NoError(t, err)

	signed, err := a.Issue(identifier.Identifier{Kind: identifier.Phone, Value: "+15551234567"}, "otp_sent")
	require.NoError(t, err)

	_, err = b.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = b.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("", time.Minute)
	assert.Error(t, err)
}
