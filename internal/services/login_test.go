package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/insport-app/auth-service/internal/identifier"
	"github.com/insport-app/auth-service/internal/models"
	"github.com/insport-app/auth-service/internal/password"
	"github.com/insport-app/auth-service/internal/token"
)

type loginFixture struct {
	svc  *LoginService
	repo *fakeUserRepo
	now  time.Time
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()
	signer, err := token.NewSigner("login-test-secret", time.Hour)
	require.NoError(t, err)

	f := &loginFixture{
		repo: &fakeUserRepo{},
		now:  time.Now(),
	}
	f.svc = NewLoginService(f.repo, signer, 5, 2*time.Hour, zap.NewNop().Sugar())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *loginFixture) seedUser(t *testing.T, phone, pass string) *models.User {
	t.Helper()
	hash, err := password.Hash(pass, password.Params{
		Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)
	u := &models.User{
		ID:           primitive.NewObjectID(),
		Phone:        phone,
		Username:     "ada-" + phone,
		PasswordHash: hash,
		Status:       models.StatusActive,
		Role:         models.RoleUser,
	}
	f.repo.users = append(f.repo.users, u)
	return u
}

func TestLoginSuccess(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t)
	f.seedUser(t, "+15551234567", "Sw0rdfish!")
	id := identifier.Identifier{Kind: identifier.Phone, Value: "+15551234567"}

	user, access, err := f.svc.Login(ctx, id, "Sw0rdfish!")
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.Zero(t, user.LoginAttempts)
	assert.Nil(t, user.LockUntil)
	require.NotNil(t, user.LastLogin)
	assert.Equal(t, f.now, *user.LastLogin)
}

func TestLoginWrongPasswordCountsAttempt(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t)
	seeded := f.seedUser(t, "+15551234567", "Sw0rdfish!")
	id := identifier.Identifier{Kind: identifier.Phone, Value: "+15551234567"}

	_, _, err := f.svc.Login(ctx, id, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, seeded.LoginAttempts)
	assert.Nil(t, seeded.LockUntil)
}

func TestLockoutAfterThresholdFailures(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t)
	seeded := f.seedUser(t, "+15551234567", "Sw0rdfish!")
	id := identifier.Identifier{Kind: identifier.Phone, Value: "+15551234567"}

	for i := 0; i < 5; i++ {
		_, _, err := f.svc.Login(ctx, id, "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	require.NotNil(t, seeded.LockUntil)
	assert.True(t, seeded.LockUntil.After(f.now))
	assert.Zero(t, seeded.LoginAttempts)

	// locked: even the correct password is rejected
	_, _, err := f.svc.Login(ctx, id, "Sw0rdfish!")
	assert.ErrorIs(t, err, ErrAccountLocked)

	// lock expires, successful login clears the state
	f.now = f.now.Add(2*time.Hour + time.Minute)
	user, _, err := f.svc.Login(ctx, id, "Sw0rdfish!")
	require.NoError(t, err)
	assert.Nil(t, user.LockUntil)
	assert.Zero(t, user.LoginAttempts)
}

func TestLoginUnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t)

	_, _, err := f.svc.Login(ctx, identifier.Identifier{Kind: identifier.Email, Value: "ghost@example.com"}, "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
