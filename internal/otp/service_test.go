package otp

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insport-app/auth-service/internal/crypto"
	"github.com/insport-app/auth-service/internal/identifier"
	"github.com/insport-app/auth-service/internal/session"
)

type captureSender struct {
	codes []string
	err   error
}

func (c *captureSender) SendCode(ctx context.Context, id identifier.Identifier, code string, ttlMinutes int) error {
	if c.err != nil {
		return c.err
	}
	c.codes = append(c.codes, code)
	return nil
}

func (c *captureSender) last() string { return c.codes[len(c.codes)-1] }

func newTestService(t *testing.T, store *session.MemoryStore, sender *captureSender) *Service {
	t.Helper()
	codec, err := crypto.NewCodec("unit-test-encryption-key")
	require.NoError(t, err)
	return NewService(store, codec, sender, Config{
		Length:         6,
		Expiration:     5 * time.Minute,
		ResendInterval: time.Minute,
		MaxAttempts:    5,
	}, zap.NewNop().Sugar())
}

func phoneID() identifier.Identifier {
	return identifier.Identifier{Kind: identifier.Phone, Value: "+15551234567"}
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		_, err = strconv.Atoi(code)
		require.NoError(t, err)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)

	_, err := GenerateCode(0)
	assert.Error(t, err)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sender := &captureSender{}
	svc := newTestService(t, store, sender)

	require.NoError(t, svc.Issue(ctx, phoneID()))
	require.Len(t, sender.codes, 1)

	// stored form is encrypted, not the plaintext code
	stored, err := store.Get(ctx, phoneID().StorageKey("otp:"))
	require.NoError(t, err)
	assert.NotEqual(t, sender.last(), stored)

	require.NoError(t, svc.Verify(ctx, phoneID(), sender.last()))

	// single use: the same code fails afterwards
	assert.ErrorIs(t, svc.Verify(ctx, phoneID(), sender.last()), ErrCodeExpired)
}

func TestVerifyMismatchKeepsCode(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sender := &captureSender{}
	svc := newTestService(t, store, sender)

	require.NoError(t, svc.Issue(ctx, phoneID()))

	wrong := "000000"
	if sender.last() == wrong {
		wrong = "000001"
	}
	assert.ErrorIs(t, svc.Verify(ctx, phoneID(), wrong), ErrCodeMismatch)

	// the real code still verifies
	assert.NoError(t, svc.Verify(ctx, phoneID(), sender.last()))
}

func TestVerifyAttemptBudget(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sender := &captureSender{}
	svc := newTestService(t, store, sender)

	require.NoError(t, svc.Issue(ctx, phoneID()))

	wrong := "000000"
	if sender.last() == wrong {
		wrong = "000001"
	}
	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, svc.Verify(ctx, phoneID(), wrong), ErrCodeMismatch)
	}
	assert.ErrorIs(t, svc.Verify(ctx, phoneID(), wrong), ErrTooManyAttempts)

	// code invalidated, even the correct one no longer works
	assert.ErrorIs(t, svc.Verify(ctx, phoneID(), sender.last()), ErrCodeExpired)
}

func TestIssueResendCooldown(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })
	sender := &captureSender{}
	svc := newTestService(t, store, sender)

	require.NoError(t, svc.Issue(ctx, phoneID()))
	assert.ErrorIs(t, svc.Issue(ctx, phoneID()), ErrResendCooldown)

	now = now.Add(61 * time.Second)
	assert.NoError(t, svc.Issue(ctx, phoneID()))
	assert.Len(t, sender.codes, 2)
}

func TestIssueDeliveryFailureInvalidatesCode(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sender := &captureSender{err: errors.New("gateway down")}
	svc := newTestService(t, store, sender)

	err := svc.Issue(ctx, phoneID())
	require.Error(t, err)

	_, err = store.Get(ctx, phoneID().StorageKey("otp:"))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestVerifyExpiredCode(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })
	sender := &captureSender{}
	svc := newTestService(t, store, sender)

	require.NoError(t, svc.Issue(ctx, phoneID()))

	now = now.Add(5*time.Minute + time.Second)
	assert.ErrorIs(t, svc.Verify(ctx, phoneID(), sender.last()), ErrCodeExpired)
}
