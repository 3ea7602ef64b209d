// Package service implements phone-number sign-in: code delivery, code confirmation and identity tokens.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"soori/internal/devotp"
	"soori/internal/identity/domain"
	"soori/internal/mfa"
	mfadomain "soori/internal/mfa/domain"
	mfarepo "soori/internal/mfa/repository"
	"soori/internal/security"
	"soori/internal/verification"
)

var (
	ErrInvalidPhone     = errors.New("phone number must be in E.164 format")
	ErrInvalidCode      = errors.New("invalid verification code")
	ErrChallengeExpired = errors.New("verification code expired")
	ErrTooManyAttempts  = errors.New("too many attempts")
	ErrUnknownHandle    = errors.New("unknown confirmation handle")
	ErrNoSender         = errors.New("no code sender configured")
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// ChallengeRepo is the minimal challenge persistence used by PhoneProvider.
type ChallengeRepo interface {
	Create(ctx context.Context, c *mfadomain.Challenge) error
	GetByID(ctx context.Context, id string) (*mfadomain.Challenge, error)
	Update(ctx context.Context, c *mfadomain.Challenge) error
	Delete(ctx context.Context, id string) error
}

// IdentityRepo is the minimal identity persistence used by PhoneProvider.
type IdentityRepo interface {
	GetByProviderID(ctx context.Context, provider domain.IdentityProvider, providerID string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	TouchVerified(ctx context.Context, id string, at time.Time) error
}

// CodeSender delivers a verification code to a phone number.
type CodeSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// PhoneProvider is the identity provider behind sign-in sessions. It implements verification.IdentityProvider.
type PhoneProvider struct {
	challenges   ChallengeRepo
	identities   IdentityRepo
	sender       CodeSender
	devStore     devotp.Store
	hasher       *security.Hasher
	tokens       *security.TokenProvider
	clock        clockwork.Clock
	logger       *zap.Logger
	challengeTTL time.Duration
	maxAttempts  int
}

var _ verification.IdentityProvider = (*PhoneProvider)(nil)

// NewPhoneProvider returns a PhoneProvider.
// When devStore is non-nil codes are kept there instead of being sent; sender may then be nil.
// Non-positive challengeTTL and maxAttempts select the repository defaults.
// A nil clock uses the real clock and a nil logger discards output.
func NewPhoneProvider(
	challenges ChallengeRepo,
	identities IdentityRepo,
	sender CodeSender,
	devStore devotp.Store,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	challengeTTL time.Duration,
	maxAttempts int,
	clock clockwork.Clock,
	logger *zap.Logger,
) *PhoneProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if challengeTTL <= 0 {
		challengeTTL = mfarepo.DefaultChallengeTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = mfarepo.MaxAttempts
	}
	return &PhoneProvider{
		challenges:   challenges,
		identities:   identities,
		sender:       sender,
		devStore:     devStore,
		hasher:       hasher,
		tokens:       tokens,
		clock:        clock,
		logger:       logger,
		challengeTTL: challengeTTL,
		maxAttempts:  maxAttempts,
	}
}

// RequestCode creates a challenge for phone and delivers its code. The challenge ID is the confirmation handle.
func (p *PhoneProvider) RequestCode(ctx context.Context, phone string) (verification.ConfirmationHandle, error) {
	if !e164Pattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	if p.devStore == nil && p.sender == nil {
		return "", ErrNoSender
	}
	code, err := mfa.GenerateOTP()
	if err != nil {
		return "", err
	}
	hash, err := p.hasher.Hash(code)
	if err != nil {
		return "", err
	}
	now := p.clock.Now().UTC()
	ch := &mfadomain.Challenge{
		ID:        uuid.New().String(),
		Phone:     phone,
		CodeHash:  hash,
		ExpiresAt: now.Add(p.challengeTTL),
		CreatedAt: now,
	}
	if err := p.challenges.Create(ctx, ch); err != nil {
		return "", err
	}

	if p.devStore != nil {
		p.devStore.Put(ctx, ch.ID, code, ch.ExpiresAt)
		p.logger.Info("dev otp stored", zap.String("challenge_id", ch.ID))
		return verification.ConfirmationHandle(ch.ID), nil
	}
	if err := p.sender.SendOTP(ctx, phone, code); err != nil {
		if delErr := p.challenges.Delete(ctx, ch.ID); delErr != nil {
			p.logger.Warn("delete unsent challenge", zap.String("challenge_id", ch.ID), zap.Error(delErr))
		}
		return "", fmt.Errorf("send code: %w", err)
	}
	return verification.ConfirmationHandle(ch.ID), nil
}

// Confirm checks code against the challenge behind handle. On success the challenge is consumed
// and the phone identity is created or refreshed.
func (p *PhoneProvider) Confirm(ctx context.Context, handle verification.ConfirmationHandle, code string) (*verification.Identity, error) {
	if !mfa.IsCode(code) {
		return nil, ErrInvalidCode
	}
	ch, err := p.challenges.GetByID(ctx, string(handle))
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrUnknownHandle
	}
	now := p.clock.Now().UTC()
	if ch.Expired(now) {
		_ = p.challenges.Delete(ctx, ch.ID)
		return nil, ErrChallengeExpired
	}
	if !p.hasher.Match(ch.CodeHash, code) {
		ch.Attempts++
		if ch.Attempts >= p.maxAttempts {
			_ = p.challenges.Delete(ctx, ch.ID)
			p.forgetDevCode(ctx, ch.ID)
			return nil, ErrTooManyAttempts
		}
		if err := p.challenges.Update(ctx, ch); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCode
	}

	if err := p.challenges.Delete(ctx, ch.ID); err != nil {
		return nil, err
	}
	p.forgetDevCode(ctx, ch.ID)

	ident, err := p.upsertIdentity(ctx, ch.Phone, now)
	if err != nil {
		return nil, err
	}
	return &verification.Identity{UID: ident.ID, PhoneNumber: ident.ProviderID}, nil
}

// Token issues an identity token for a confirmed identity.
func (p *PhoneProvider) Token(_ context.Context, identity *verification.Identity) (string, error) {
	if identity == nil || identity.UID == "" {
		return "", security.ErrInvalidToken
	}
	tok, _, err := p.tokens.Issue(identity.UID, identity.PhoneNumber)
	return tok, err
}

// DevCode returns the plain code for handle when dev OTP mode is enabled.
func (p *PhoneProvider) DevCode(ctx context.Context, handle verification.ConfirmationHandle) (string, bool) {
	if p.devStore == nil {
		return "", false
	}
	return p.devStore.Get(ctx, string(handle))
}

func (p *PhoneProvider) upsertIdentity(ctx context.Context, phone string, now time.Time) (*domain.Identity, error) {
	ident, err := p.identities.GetByProviderID(ctx, domain.IdentityProviderPhone, phone)
	if err != nil {
		return nil, err
	}
	if ident != nil {
		if err := p.identities.TouchVerified(ctx, ident.ID, now); err != nil {
			return nil, err
		}
		ident.LastVerifiedAt = now
		return ident, nil
	}
	ident = &domain.Identity{
		ID:             uuid.New().String(),
		Provider:       domain.IdentityProviderPhone,
		ProviderID:     phone,
		CreatedAt:      now,
		LastVerifiedAt: now,
	}
	if err := p.identities.Create(ctx, ident); err != nil {
		return nil, err
	}
	p.logger.Info("identity created", zap.String("identity_id", ident.ID))
	return ident, nil
}

func (p *PhoneProvider) forgetDevCode(ctx context.Context, challengeID string) {
	if p.devStore != nil {
		p.devStore.Delete(ctx, challengeID)
	}
}
