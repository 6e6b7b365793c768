package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/insport-app/auth-service/internal/identifier"
	"github.com/insport-app/auth-service/internal/models"
	"github.com/insport-app/auth-service/internal/password"
	"github.com/insport-app/auth-service/internal/repository"
	"github.com/insport-app/auth-service/internal/token"
)

// StepLogin is the claim carried in access tokens issued on login.
const StepLogin = "login"

// LoginService authenticates existing users and enforces the failed-attempt
// lockout. It shares the User entity and the hashing primitive with the
// signup flow but is otherwise independent of it.
type LoginService struct {
	repo         repository.UserRepository
	signer       *token.Signer
	maxAttempts  int
	lockDuration time.Duration
	now          func() time.Time
	log          *zap.SugaredLogger
}

func NewLoginService(repo repository.UserRepository, signer *token.Signer, maxAttempts int, lockDuration time.Duration, log *zap.SugaredLogger) *LoginService {
	return &LoginService{
		repo:         repo,
		signer:       signer,
		maxAttempts:  maxAttempts,
		lockDuration: lockDuration,
		now:          time.Now,
		log:          log,
	}
}

// Login verifies the password for the account behind id. While the account is
// locked every attempt fails with ErrAccountLocked regardless of password
// correctness. Reaching the attempt threshold engages the lock and resets the
// counter; a successful login clears both.
func (s *LoginService) Login(ctx context.Context, id identifier.Identifier, pass string) (*models.User, string, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	if user.LockedUntil(now) {
		return nil, "", ErrAccountLocked
	}

	ok, err := password.Verify(pass, user.PasswordHash)
	if err != nil {
		s.log.Errorw("password verification failed", "identifier", id.String(), "error", err)
		return nil, "", ErrInternal
	}
	if !ok {
		user.LoginAttempts++
		if user.LoginAttempts >= s.maxAttempts {
			lockUntil := now.Add(s.lockDuration)
			user.LockUntil = &lockUntil
			user.LoginAttempts = 0
			s.log.Warnw("account locked after repeated failures", "identifier", id.String(), "lock_until", lockUntil)
		}
		if updErr := s.repo.Update(ctx, user); updErr != nil {
			s.log.Errorw("failed to persist login attempts", "identifier", id.String(), "error", updErr)
		}
		return nil, "", ErrInvalidCredentials
	}

	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now
	if err := s.repo.Update(ctx, user); err != nil {
		s.log.Errorw("failed to persist login state", "identifier", id.String(), "error", err)
	}

	access, err := s.signer.Issue(id, StepLogin)
	if err != nil {
		return nil, "", ErrInternal
	}
	return user, access, nil
}

func (s *LoginService) findUser(ctx context.Context, id identifier.Identifier) (*models.User, error) {
	var user *models.User
	var err error
	switch id.Kind {
	case identifier.Email:
		user, err = s.repo.FindByEmail(ctx, id.Value)
	default:
		user, err = s.repo.FindByPhone(ctx, id.Value)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.log.Errorw("user lookup failed", "identifier", id.String(), "error", err)
		return nil, ErrInternal
	}
	return user, nil
}
