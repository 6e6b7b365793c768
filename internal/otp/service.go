package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/insport-app/auth-service/internal/channel"
	"github.com/insport-app/auth-service/internal/crypto"
	"github.com/insport-app/auth-service/internal/identifier"
	"github.com/insport-app/auth-service/internal/session"
)

const (
	codePrefix     = "otp:"
	attemptsPrefix = "otp:attempts:"
	cooldownPrefix = "otp:cooldown:"
)

var (
	ErrCodeExpired     = errors.New("otp not found or expired")
	ErrCodeMismatch    = errors.New("invalid otp")
	ErrResendCooldown  = errors.New("otp was recently sent, please wait before requesting another")
	ErrTooManyAttempts = errors.New("too many otp attempts, request a new code")
)

// Service issues and verifies one-time codes. Codes are encrypted at rest,
// single-use, expire on their own, and allow a bounded number of wrong
// guesses before the code is invalidated.
type Service struct {
	store          session.Store
	codec          *crypto.Codec
	sender         channel.Sender
	length         int
	expiration     time.Duration
	resendInterval time.Duration
	maxAttempts    int64
	log            *zap.SugaredLogger
}

type Config struct {
	Length         int
	Expiration     time.Duration
	ResendInterval time.Duration
	MaxAttempts    int
}

func NewService(store session.Store, codec *crypto.Codec, sender channel.Sender, cfg Config, log *zap.SugaredLogger) *Service {
	return &Service{
		store:          store,
		codec:          codec,
		sender:         sender,
		length:         cfg.Length,
		expiration:     cfg.Expiration,
		resendInterval: cfg.ResendInterval,
		maxAttempts:    int64(cfg.MaxAttempts),
		log:            log,
	}
}

// Issue generates a fresh code for id, stores it encrypted with the
// configured TTL and dispatches the plaintext through the matching channel.
// A new code overwrites any previous one. On delivery failure the stored
// code is removed so verification cannot proceed against an undelivered code.
func (s *Service) Issue(ctx context.Context, id identifier.Identifier) error {
	ok, err := s.store.SetNX(ctx, id.StorageKey(cooldownPrefix), "1", s.resendInterval)
	if err != nil {
		return fmt.Errorf("otp cooldown check: %w", err)
	}
	if !ok {
		return ErrResendCooldown
	}

	code, err := GenerateCode(s.length)
	if err != nil {
		return err
	}
	encrypted, err := s.codec.Encrypt(code)
	if err != nil {
		return fmt.Errorf("otp encrypt: %w", err)
	}

	codeKey := id.StorageKey(codePrefix)
	if err := s.store.Set(ctx, codeKey, encrypted, s.expiration); err != nil {
		return fmt.Errorf("otp store: %w", err)
	}
	// new code, fresh attempt budget
	if err := s.store.Delete(ctx, id.StorageKey(attemptsPrefix)); err != nil {
		return fmt.Errorf("otp attempts reset: %w", err)
	}

	if err := s.sender.SendCode(ctx, id, code, int(s.expiration.Minutes())); err != nil {
		if delErr := s.store.Delete(ctx, codeKey); delErr != nil {
			s.log.Errorw("failed to invalidate undelivered otp", "identifier", id.String(), "error", delErr)
		}
		return err
	}

	s.log.Infow("otp issued", "identifier", id.String())
	return nil
}

// Verify compares candidate against the stored code. A match consumes the
// code; a mismatch leaves it in place but burns one attempt. Exhausting the
// attempt budget invalidates the code.
func (s *Service) Verify(ctx context.Context, id identifier.Identifier, candidate string) error {
	codeKey := id.StorageKey(codePrefix)
	encrypted, err := s.store.Get(ctx, codeKey)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrCodeExpired
		}
		return fmt.Errorf("otp fetch: %w", err)
	}

	stored, err := s.codec.Decrypt(encrypted)
	if err != nil {
		return fmt.Errorf("otp decrypt: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) != 1 {
		attempts, incErr := s.store.Incr(ctx, id.StorageKey(attemptsPrefix), s.expiration)
		if incErr != nil {
			return fmt.Errorf("otp attempts: %w", incErr)
		}
		if attempts >= s.maxAttempts {
			if delErr := s.store.Delete(ctx, codeKey, id.StorageKey(attemptsPrefix)); delErr != nil {
				return fmt.Errorf("otp invalidate: %w", delErr)
			}
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}

	if err := s.store.Delete(ctx, codeKey, id.StorageKey(attemptsPrefix)); err != nil {
		return fmt.Errorf("otp consume: %w", err)
	}
	s.log.Infow("otp verified", "identifier", id.String())
	return nil
}
