package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insport-app/auth-service/internal/identifier"
	"github.com/insport-app/auth-service/internal/models"
	"github.com/insport-app/auth-service/internal/otp"
	"github.com/insport-app/auth-service/internal/password"
	"github.com/insport-app/auth-service/internal/ratelimit"
	"github.com/insport-app/auth-service/internal/repository"
	"github.com/insport-app/auth-service/internal/session"
	"github.com/insport-app/auth-service/internal/token"
)

// FlowState is the explicit position of a signup attempt. It is derived from
// session-store evidence on every call; flow tokens only prove a prior
// completion and never advance the state on their own.
type FlowState string

const (
	StateAwaitingIdentifier FlowState = "awaiting_identifier"
	StateAwaitingOTP        FlowState = "awaiting_otp"
	StateAwaitingDetails    FlowState = "awaiting_details"
	StateAwaitingPassword   FlowState = "awaiting_password"
)

// Completed-step names carried in flow tokens.
const (
	StepIdentifierSubmitted = "identifier_submitted"
	StepOTPVerified         = "otp_verified"
	StepDetailsSubmitted    = "details_submitted"
)

const (
	pendingPrefix  = "signup:pending:"
	verifiedPrefix = "signup:verified:"
	detailsPrefix  = "signup:details:"
)

// DetailsResult is the outcome of the details step. When the submitted
// secondary identifier has not been verified yet, the flow drops back to the
// OTP step for that identifier instead of proceeding.
type DetailsResult struct {
	Token                        string
	SecondaryVerificationPending bool
	SecondaryIdentifier          identifier.Identifier
}

// SignupService drives the four-step account creation flow:
// create-account, verify-otp, enter-details, set-password.
type SignupService struct {
	repo       repository.UserRepository
	store      session.Store
	otp        *otp.Service
	limiter    *ratelimit.Limiter
	signer     *token.Signer
	tempTTL    time.Duration
	hashParams password.Params
	log        *zap.SugaredLogger
}

func NewSignupService(
	repo repository.UserRepository,
	store session.Store,
	otpSvc *otp.Service,
	limiter *ratelimit.Limiter,
	signer *token.Signer,
	tempTTL time.Duration,
	hashParams password.Params,
	log *zap.SugaredLogger,
) *SignupService {
	return &SignupService{
		repo:       repo,
		store:      store,
		otp:        otpSvc,
		limiter:    limiter,
		signer:     signer,
		tempTTL:    tempTTL,
		hashParams: hashParams,
		log:        log,
	}
}

// State derives the current flow position for id from session evidence.
func (s *SignupService) State(ctx context.Context, id identifier.Identifier) FlowState {
	if _, err := s.store.Get(ctx, id.StorageKey(detailsPrefix)); err == nil {
		return StateAwaitingPassword
	}
	if _, err := s.store.Get(ctx, id.StorageKey(verifiedPrefix)); err == nil {
		return StateAwaitingDetails
	}
	if _, err := s.store.Get(ctx, id.StorageKey(pendingPrefix)); err == nil {
		return StateAwaitingOTP
	}
	return StateAwaitingIdentifier
}

// CreateAccount starts a flow for id: rejects identifiers that already belong
// to an account, applies the per-identifier rate limit, issues an OTP and
// returns a flow token the client can resume with.
func (s *SignupService) CreateAccount(ctx context.Context, id identifier.Identifier) (string, error) {
	if id.IsZero() {
		return "", ErrIdentifierRequired
	}
	if err := s.ensureUnregistered(ctx, id); err != nil {
		return "", err
	}
	if err := s.limiter.CheckAndIncrement(ctx, id.Value); err != nil {
		return "", err
	}
	if err := s.otp.Issue(ctx, id); err != nil {
		return "", err
	}

	pending, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("marshal pending identifier: %w", err)
	}
	if err := s.store.Set(ctx, id.StorageKey(pendingPrefix), string(pending), s.tempTTL); err != nil {
		return "", fmt.Errorf("store pending identifier: %w", err)
	}

	signed, err := s.signer.Issue(id, StepIdentifierSubmitted)
	if err != nil {
		return "", err
	}
	s.log.Infow("account creation started", "identifier", id.String())
	return signed, nil
}

// ResendOTP re-issues a code for a live flow, subject to the resend cooldown
// and the request rate limit. Identifiers with no pending flow are rejected
// so the endpoint cannot be used to send codes to arbitrary contacts.
func (s *SignupService) ResendOTP(ctx context.Context, id identifier.Identifier) error {
	if id.IsZero() {
		return ErrIdentifierRequired
	}
	if _, err := s.store.Get(ctx, id.StorageKey(pendingPrefix)); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrFlowNotFound
		}
		return fmt.Errorf("pending flow lookup: %w", err)
	}
	if err := s.limiter.CheckAndIncrement(ctx, id.Value); err != nil {
		return err
	}
	return s.otp.Issue(ctx, id)
}

// VerifyOTP checks the submitted code and marks id verified. An inbound flow
// token, when present, must have been issued for the same identifier.
func (s *SignupService) VerifyOTP(ctx context.Context, id identifier.Identifier, code, flowToken string) (string, error) {
	if err := s.crossCheckToken(flowToken, id); err != nil {
		return "", err
	}
	if err := s.otp.Verify(ctx, id, code); err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, id.StorageKey(verifiedPrefix), "1", s.tempTTL); err != nil {
		return "", fmt.Errorf("store verified marker: %w", err)
	}

	signed, err := s.signer.Issue(id, StepOTPVerified)
	if err != nil {
		return "", err
	}
	s.log.Infow("otp step completed", "identifier", id.String())
	return signed, nil
}

// EnterDetails stores the draft profile for a verified identifier. When the
// draft introduces a second identifier that has not been verified, the flow
// issues an OTP for it and reports that verification is still pending rather
// than silently skipping the second channel.
func (s *SignupService) EnterDetails(ctx context.Context, primary identifier.Identifier, draft models.PendingProfile, flowToken string) (DetailsResult, error) {
	if err := s.crossCheckToken(flowToken, primary); err != nil {
		return DetailsResult{}, err
	}
	if draft.FirstName == "" || draft.LastName == "" {
		return DetailsResult{}, ErrMissingFields
	}
	if _, err := s.store.Get(ctx, primary.StorageKey(verifiedPrefix)); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return DetailsResult{}, ErrNotVerified
		}
		return DetailsResult{}, fmt.Errorf("verified marker lookup: %w", err)
	}

	secondary, err := s.secondaryIdentifier(primary, draft)
	if err != nil {
		return DetailsResult{}, err
	}
	if !secondary.IsZero() {
		if err := s.ensureUnregistered(ctx, secondary); err != nil {
			return DetailsResult{}, err
		}
		if _, err := s.store.Get(ctx, secondary.StorageKey(verifiedPrefix)); err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				return DetailsResult{}, fmt.Errorf("verified marker lookup: %w", err)
			}
			// back to the OTP step, this time for the secondary channel
			if err := s.limiter.CheckAndIncrement(ctx, secondary.Value); err != nil {
				return DetailsResult{}, err
			}
			if err := s.otp.Issue(ctx, secondary); err != nil {
				return DetailsResult{}, err
			}
			pending, err := json.Marshal(secondary)
			if err != nil {
				return DetailsResult{}, fmt.Errorf("marshal pending identifier: %w", err)
			}
			if err := s.store.Set(ctx, secondary.StorageKey(pendingPrefix), string(pending), s.tempTTL); err != nil {
				return DetailsResult{}, fmt.Errorf("store pending identifier: %w", err)
			}
			signed, err := s.signer.Issue(secondary, StepIdentifierSubmitted)
			if err != nil {
				return DetailsResult{}, err
			}
			s.log.Infow("secondary identifier requires verification",
				"primary", primary.String(), "secondary", secondary.String())
			return DetailsResult{
				Token:                        signed,
				SecondaryVerificationPending: true,
				SecondaryIdentifier:          secondary,
			}, nil
		}
	}

	encoded, err := json.Marshal(draft)
	if err != nil {
		return DetailsResult{}, fmt.Errorf("marshal draft profile: %w", err)
	}
	if err := s.store.Set(ctx, primary.StorageKey(detailsPrefix), string(encoded), s.tempTTL); err != nil {
		return DetailsResult{}, fmt.Errorf("store draft profile: %w", err)
	}

	signed, err := s.signer.Issue(primary, StepDetailsSubmitted)
	if err != nil {
		return DetailsResult{}, err
	}
	s.log.Infow("details step completed", "identifier", primary.String())
	return DetailsResult{Token: signed}, nil
}

// SetPassword finalizes the flow: validates the confirmation, hashes the
// password and atomically persists the User and UserProfile. The session
// entries for the flow are purged after a successful commit.
func (s *SignupService) SetPassword(ctx context.Context, id identifier.Identifier, pass, confirm, flowToken string) (*models.User, error) {
	if err := s.crossCheckToken(flowToken, id); err != nil {
		return nil, err
	}
	if pass != confirm {
		return nil, ErrPasswordMismatch
	}

	raw, err := s.store.Get(ctx, id.StorageKey(detailsPrefix))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrDetailsExpired
		}
		return nil, fmt.Errorf("draft profile lookup: %w", err)
	}
	var draft models.PendingProfile
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("decode draft profile: %w", err)
	}

	hash, err := password.Hash(pass, s.hashParams)
	if err != nil {
		s.log.Errorw("password hashing failed", "error", err)
		return nil, ErrInternal
	}

	user := &models.User{
		UUID:         uuid.NewString(),
		Username:     usernameFor(draft, id),
		Email:        draft.Email,
		Phone:        draft.Phone,
		PasswordHash: hash,
		Status:       models.StatusActive,
		Role:         models.RoleUser,
	}
	profile := &models.UserProfile{
		FirstName:       draft.FirstName,
		LastName:        draft.LastName,
		ExperienceLevel: models.ExperienceBeginner,
	}

	// uniqueness is re-checked here by the unique indexes; a commit-time
	// duplicate surfaces as a conflict, not a generic failure
	if err := s.repo.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		s.log.Errorw("user creation transaction failed", "identifier", id.String(), "error", err)
		return nil, ErrInternal
	}

	s.purgeFlow(ctx, id, draft)
	s.log.Infow("account created", "identifier", id.String(), "user_uuid", user.UUID)
	return user, nil
}

// purgeFlow removes every session entry for the flow, for both identifiers
// the draft may reference. Absent keys are a no-op.
func (s *SignupService) purgeFlow(ctx context.Context, primary identifier.Identifier, draft models.PendingProfile) {
	ids := []identifier.Identifier{primary}
	if draft.Email != "" {
		if em, err := identifier.NewEmail(draft.Email); err == nil && !em.Equal(primary) {
			ids = append(ids, em)
		}
	}
	if draft.Phone != "" {
		if ph, err := identifier.NewPhone(draft.Phone); err == nil && !ph.Equal(primary) {
			ids = append(ids, ph)
		}
	}
	keys := make([]string, 0, len(ids)*3)
	for _, id := range ids {
		keys = append(keys,
			id.StorageKey(pendingPrefix),
			id.StorageKey(verifiedPrefix),
			id.StorageKey(detailsPrefix),
		)
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.log.Errorw("failed to purge signup session entries", "identifier", primary.String(), "error", err)
	}
}

func (s *SignupService) ensureUnregistered(ctx context.Context, id identifier.Identifier) error {
	var err error
	switch id.Kind {
	case identifier.Email:
		_, err = s.repo.FindByEmail(ctx, id.Value)
	default:
		_, err = s.repo.FindByPhone(ctx, id.Value)
	}
	if err == nil {
		return ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		s.log.Errorw("user lookup failed", "identifier", id.String(), "error", err)
		return ErrInternal
	}
	return nil
}

// crossCheckToken rejects tokens issued for a different identifier. A missing
// token is acceptable; the session store remains authoritative either way.
func (s *SignupService) crossCheckToken(flowToken string, id identifier.Identifier) error {
	if flowToken == "" {
		return nil
	}
	claims, err := s.signer.Verify(flowToken)
	if err != nil {
		return err
	}
	if !claims.Identifier().Equal(id) {
		return ErrTokenMismatch
	}
	return nil
}

func (s *SignupService) secondaryIdentifier(primary identifier.Identifier, draft models.PendingProfile) (identifier.Identifier, error) {
	switch primary.Kind {
	case identifier.Phone:
		if draft.Email != "" {
			return identifier.NewEmail(draft.Email)
		}
	case identifier.Email:
		if draft.Phone != "" {
			return identifier.NewPhone(draft.Phone)
		}
	}
	return identifier.Identifier{}, nil
}

func usernameFor(draft models.PendingProfile, id identifier.Identifier) string {
	base := strings.ToLower(draft.FirstName + "." + draft.LastName)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, base)
	if base == "" {
		base = "user"
	}
	return base + "-" + uuid.NewString()[:8]
}
