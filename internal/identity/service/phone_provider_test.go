package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soori/internal/devotp"
	"soori/internal/identity/domain"
	identityrepo "soori/internal/identity/repository"
	mfarepo "soori/internal/mfa/repository"
	"soori/internal/security"
	"soori/internal/verification"
)

const testPhone = "+821012345678"

type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (s *recordingSender) SendOTP(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[phone] = code
	return nil
}

func (s *recordingSender) last(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[phone]
}

type fixture struct {
	provider   *PhoneProvider
	challenges *mfarepo.MemoryRepository
	identities *identityrepo.MemoryRepository
	sender     *recordingSender
	tokens     *security.TokenProvider
	clock      *clockwork.FakeClock
}

func newFixture(t *testing.T, dev bool) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	tokens, err := security.NewEphemeralTokenProvider("test-issuer", "test-audience", time.Hour, clock)
	require.NoError(t, err)
	f := &fixture{
		challenges: mfarepo.NewMemoryRepository(clock),
		identities: identityrepo.NewMemoryRepository(),
		sender:     &recordingSender{},
		tokens:     tokens,
		clock:      clock,
	}
	var store devotp.Store
	if dev {
		store = devotp.NewMemoryStore(clock)
	}
	f.provider = NewPhoneProvider(f.challenges, f.identities, f.sender, store,
		security.NewHasher(4), tokens, 0, 0, clock, nil)
	return f
}

func TestRequestCode_SendsAndConfirms(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	handle, err := f.provider.RequestCode(ctx, testPhone)
	require.NoError(t, err)
	require.NotEmpty(t, handle)
	code := f.sender.last(testPhone)
	require.Len(t, code, 6)

	id, err := f.provider.Confirm(ctx, handle, code)
	require.NoError(t, err)
	assert.NotEmpty(t, id.UID)
	assert.Equal(t, testPhone, id.PhoneNumber)

	_, err = f.provider.Confirm(ctx, handle, code)
	assert.ErrorIs(t, err, ErrUnknownHandle, "a confirmed challenge is consumed")
}

func TestRequestCode_InvalidPhone(t *testing.T) {
	f := newFixture(t, false)
	for _, phone := range []string{"", "01012345678", "+0101234", "+82-10-1234-5678"} {
		_, err := f.provider.RequestCode(context.Background(), phone)
		assert.ErrorIs(t, err, ErrInvalidPhone, phone)
	}
}

func TestRequestCode_SendFailureDeletesChallenge(t *testing.T) {
	f := newFixture(t, false)
	f.sender.err = errors.New("gateway down")

	handle, err := f.provider.RequestCode(context.Background(), testPhone)
	require.Error(t, err)
	assert.Empty(t, handle)
	assert.Zero(t, f.challenges.Len(), "no challenge left behind")
}

func TestRequestCode_NoSender(t *testing.T) {
	f := newFixture(t, false)
	p := NewPhoneProvider(f.challenges, f.identities, nil, nil, security.NewHasher(4), f.tokens, 0, 0, f.clock, nil)
	_, err := p.RequestCode(context.Background(), testPhone)
	assert.ErrorIs(t, err, ErrNoSender)
}

func TestRequestCode_DevModeKeepsCode(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	handle, err := f.provider.RequestCode(ctx, testPhone)
	require.NoError(t, err)
	assert.Empty(t, f.sender.last(testPhone), "dev mode does not send")

	code, ok := f.provider.DevCode(ctx, handle)
	require.True(t, ok)
	_, err = f.provider.Confirm(ctx, handle, code)
	require.NoError(t, err)

	_, ok = f.provider.DevCode(ctx, handle)
	assert.False(t, ok, "dev code is forgotten after confirmation")
}

func TestConfirm_WrongCode(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	handle, err := f.provider.RequestCode(ctx, testPhone)
	require.NoError(t, err)

	_, err = f.provider.Confirm(ctx, handle, wrongCode(f.sender.last(testPhone)))
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = f.provider.Confirm(ctx, handle, "12ab")
	assert.ErrorIs(t, err, ErrInvalidCode)

	id, err := f.provider.Confirm(ctx, handle, f.sender.last(testPhone))
	require.NoError(t, err, "the right code still works after a miss")
	assert.NotEmpty(t, id.UID)
}

func TestConfirm_TooManyAttemptsBurnsChallenge(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	handle, err := f.provider.RequestCode(ctx, testPhone)
	require.NoError(t, err)
	code := f.sender.last(testPhone)
	wrong := wrongCode(code)

	for i := 1; i < mfarepo.MaxAttempts; i++ {
		_, err = f.provider.Confirm(ctx, handle, wrong)
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err = f.provider.Confirm(ctx, handle, wrong)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = f.provider.Confirm(ctx, handle, code)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestConfirm_Expired(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	handle, err := f.provider.RequestCode(ctx, testPhone)
	require.NoError(t, err)

	f.clock.Advance(mfarepo.DefaultChallengeTTL)
	_, err = f.provider.Confirm(ctx, handle, f.sender.last(testPhone))
	assert.Error(t, err)
}

func TestConfirm_ReusesIdentity(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	confirm := func() *verification.Identity {
		handle, err := f.provider.RequestCode(ctx, testPhone)
		require.NoError(t, err)
		id, err := f.provider.Confirm(ctx, handle, f.sender.last(testPhone))
		require.NoError(t, err)
		return id
	}
	first := confirm()
	f.clock.Advance(time.Hour)
	second := confirm()
	assert.Equal(t, first.UID, second.UID)

	stored, err := f.identities.GetByProviderID(ctx, domain.IdentityProviderPhone, testPhone)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().UTC(), stored.LastVerifiedAt)
}

func TestToken(t *testing.T) {
	f := newFixture(t, false)
	tok, err := f.provider.Token(context.Background(), &verification.Identity{UID: "uid-1", PhoneNumber: testPhone})
	require.NoError(t, err)

	claims, err := f.tokens.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.Subject)
	assert.Equal(t, testPhone, claims.PhoneNumber)

	_, err = f.provider.Token(context.Background(), nil)
	assert.Error(t, err)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
