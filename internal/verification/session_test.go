package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userdomain "soori/internal/user/domain"
)

const validCode = "123456"

type fakeProvider struct {
	mu           sync.Mutex
	requestErr   error
	tokenErr     error
	hang         chan struct{}
	requests     []string
	confirmCalls int
}

func (p *fakeProvider) RequestCode(ctx context.Context, phone string) (ConfirmationHandle, error) {
	p.mu.Lock()
	p.requests = append(p.requests, phone)
	err, hang := p.requestErr, p.hang
	p.mu.Unlock()
	if hang != nil {
		<-hang
	}
	if err != nil {
		return "", err
	}
	return "handle-1", nil
}

func (p *fakeProvider) Confirm(ctx context.Context, h ConfirmationHandle, code string) (*Identity, error) {
	p.mu.Lock()
	p.confirmCalls++
	p.mu.Unlock()
	if h != "handle-1" || code != validCode {
		return nil, errors.New("invalid code")
	}
	return &Identity{UID: "uid-1", PhoneNumber: "+821012345678"}, nil
}

func (p *fakeProvider) Token(ctx context.Context, id *Identity) (string, error) {
	if p.tokenErr != nil {
		return "", p.tokenErr
	}
	return "token-for-" + id.UID, nil
}

func (p *fakeProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakeProvider) confirmCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirmCalls
}

type fakeDirectory struct {
	mu        sync.Mutex
	exists    bool
	createErr error
	tokens    []string
	created   []userdomain.Profile
}

func (d *fakeDirectory) CheckExists(ctx context.Context, token string) (*CheckResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = append(d.tokens, token)
	return &CheckResult{Exists: d.exists}, nil
}

func (d *fakeDirectory) Create(ctx context.Context, token string, p *userdomain.Profile) (*userdomain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, *p)
	if d.createErr != nil {
		return nil, d.createErr
	}
	return &userdomain.User{ID: "user-1", Name: p.Name}, nil
}

func (d *fakeDirectory) createCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.created)
}

type recordedEvent struct {
	title, description string
	fatal              bool
}

type fakeEventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *fakeEventLog) Record(_ context.Context, title, description string, fatal bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{title, description, fatal})
}

func (l *fakeEventLog) titles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.title)
	}
	return out
}

type harness struct {
	clock     *clockwork.FakeClock
	provider  *fakeProvider
	directory *fakeDirectory
	events    *fakeEventLog
	session   *Session
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock:     clockwork.NewFakeClock(),
		provider:  &fakeProvider{},
		directory: &fakeDirectory{},
		events:    &fakeEventLog{},
	}
	opts = append([]Option{WithClock(h.clock), WithCallTimeout(time.Second)}, opts...)
	h.session = NewSession(h.provider, h.directory, h.events, opts...)
	t.Cleanup(h.session.Close)
	return h
}

func (h *harness) waitFor(t *testing.T, what string, cond func(State) bool) State {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.session.Snapshot()) }, 2*time.Second, time.Millisecond, what)
	return h.session.Snapshot()
}

func (h *harness) requestCode(t *testing.T) State {
	t.Helper()
	h.session.UpdatePhoneNumber("010-1234-5678")
	h.session.RequestVerification()
	return h.waitFor(t, "code requested", func(s State) bool { return s.TimerRunning })
}

// advance moves the fake clock one second at a time, waiting for each tick to land.
func (h *harness) advance(t *testing.T, seconds int) State {
	t.Helper()
	for i := 0; i < seconds; i++ {
		want := h.session.Snapshot().RemainingSeconds - 1
		h.clock.Advance(time.Second)
		h.waitFor(t, "tick", func(s State) bool { return s.RemainingSeconds == want })
	}
	return h.session.Snapshot()
}

// The countdown runs out one tick per second and the code can no longer be verified.
func TestSession_CodeExpires(t *testing.T) {
	h := newHarness(t)
	s := h.requestCode(t)
	assert.Equal(t, ExpirationTime, s.RemainingSeconds)
	assert.Equal(t, 1, h.provider.requestCount())
	assert.Equal(t, "+821012345678", h.provider.requests[0])

	s = h.advance(t, ExpirationTime)
	assert.Equal(t, 0, s.RemainingSeconds)
	assert.False(t, s.TimerRunning)
	assert.False(t, s.CanVerifyCode())
	assert.Equal(t, MsgExpired, s.ErrorMessage())

	h.clock.Advance(5 * time.Second)
	h.session.UpdateVerificationCode(validCode)
	s = h.waitFor(t, "code entered", func(s State) bool { return s.VerificationCode == validCode })
	assert.Equal(t, 0, s.RemainingSeconds)
	assert.Equal(t, 0, h.provider.confirmCount())
}

// Existing users end in LoginComplete without seeing the signup form.
func TestSession_ExistingUserLogsIn(t *testing.T) {
	h := newHarness(t)
	h.directory.exists = true
	h.requestCode(t)
	h.advance(t, 3)

	h.session.UpdateVerificationCode(validCode)
	s := h.waitFor(t, "login complete", func(s State) bool { return s.Phase == PhaseLoginComplete })

	assert.True(t, s.Verified)
	assert.True(t, s.UserExists)
	assert.False(t, s.NeedToSignUp())
	assert.False(t, s.TimerRunning)
	assert.Equal(t, ExpirationTime-3, s.RemainingSeconds)
	assert.Equal(t, "token-for-uid-1", s.IdentityToken)
	assert.Equal(t, []string{"token-for-uid-1"}, h.directory.tokens)

	// The timer stays stopped after verification.
	h.clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, ExpirationTime-3, h.session.Snapshot().RemainingSeconds)
}

// New users fill the form and register with the vehicle id.
func TestSession_NewUserSignsUp(t *testing.T) {
	h := newHarness(t)
	h.requestCode(t)
	h.session.UpdateVerificationCode(validCode)
	h.waitFor(t, "signup required", func(s State) bool { return s.NeedToSignUp() })

	h.session.UpdateName("홍길동")
	h.session.UpdateModel("SW-1000")
	h.session.UpdatePurchasedAt("2023-04-01")
	h.session.UpdateManufacturedAt("2022-12-01")
	h.session.UpdateRecipientType("수급")
	h.session.UpdateSupportedDistrict("마포구")
	h.waitFor(t, "form valid", func(s State) bool { return s.CanSignUp() && s.Form.SupportedDistrict == "마포구" })

	h.session.SignUp("")
	s := h.waitFor(t, "vehicle notice", func(s State) bool { return s.Notice == MsgVehicleRequired })
	assert.Equal(t, PhaseSignupRequired, s.Phase)
	assert.Equal(t, 0, h.directory.createCount())

	h.session.SignUp("veh-1")
	s = h.waitFor(t, "signed up", func(s State) bool { return s.Phase == PhaseLoginComplete })
	assert.True(t, s.UserExists)
	require.Equal(t, 1, h.directory.createCount())
	created := h.directory.created[0]
	assert.Equal(t, "veh-1", created.VehicleID)
	assert.Equal(t, userdomain.RecipientBasic, created.RecipientType)
	assert.Equal(t, userdomain.SupportedDistrict("마포구"), created.SupportedDistrict)
}

func TestSession_SignupFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.directory.createErr = errors.New("directory unavailable")
	h.requestCode(t)
	h.session.UpdateVerificationCode(validCode)
	h.waitFor(t, "signup required", func(s State) bool { return s.NeedToSignUp() })

	h.session.UpdateName("홍길동")
	h.session.UpdateModel("SW-1000")
	h.session.UpdatePurchasedAt("2023-04-01")
	h.session.UpdateManufacturedAt("2022-12-01")
	h.session.SignUp("veh-1")
	s := h.waitFor(t, "signup failed", func(s State) bool { return s.Notice == MsgSignupFailed })

	assert.True(t, s.Verified)
	assert.True(t, s.CanSignUp())
	assert.Contains(t, h.events.titles(), EventSignupFailed)
}

// A wrong code keeps the timer running and allows another try.
func TestSession_WrongCode(t *testing.T) {
	h := newHarness(t)
	h.requestCode(t)

	h.session.UpdateVerificationCode("000000")
	s := h.waitFor(t, "verify error", func(s State) bool { return s.VerifyError != "" })
	assert.Equal(t, MsgInvalidCode, s.ErrorMessage())
	assert.False(t, s.Verified)
	assert.True(t, s.TimerRunning)
	assert.Equal(t, "000000", s.VerificationCode)

	s = h.advance(t, 2)
	assert.Equal(t, ExpirationTime-2, s.RemainingSeconds)

	h.session.UpdateVerificationCode(validCode)
	h.waitFor(t, "verified", func(s State) bool { return s.Verified })
	assert.Equal(t, 2, h.provider.confirmCount())
}

// The phone number cannot change once a code was sent.
func TestSession_PhoneLockedAfterRequest(t *testing.T) {
	h := newHarness(t)
	h.requestCode(t)

	h.session.UpdatePhoneNumber("01099998888")
	h.session.UpdateVerificationCode("1")
	s := h.waitFor(t, "edits processed", func(s State) bool { return s.VerificationCode == "1" })
	assert.Equal(t, "01012345678", s.PhoneNumber)
}

func TestSession_RequestFailureRecordsEvent(t *testing.T) {
	h := newHarness(t)
	h.provider.requestErr = errors.New("provider down")
	h.session.UpdatePhoneNumber("01012345678")
	h.session.RequestVerification()

	s := h.waitFor(t, "request error", func(s State) bool { return s.RequestError != "" })
	assert.Equal(t, MsgRequestFailed, s.RequestError)
	assert.False(t, s.CanRequestVerification())
	require.Eventually(t, func() bool {
		return len(h.events.titles()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{EventCodeSendFailed}, h.events.titles())
}

func TestSession_HungCallTimesOut(t *testing.T) {
	h := newHarness(t, WithCallTimeout(20*time.Millisecond))
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	h.provider.hang = release
	h.session.UpdatePhoneNumber("01012345678")
	h.session.RequestVerification()

	s := h.waitFor(t, "timeout surfaced", func(s State) bool { return s.RequestError != "" })
	assert.Equal(t, OpNone, s.Pending)
	assert.False(t, s.CodeRequested())
}

func TestSession_DoubleSubmitSendsOnce(t *testing.T) {
	h := newHarness(t)
	h.session.UpdatePhoneNumber("01012345678")
	for i := 0; i < 5; i++ {
		h.session.RequestVerification()
	}
	h.waitFor(t, "code requested", func(s State) bool { return s.CodeRequested() })
	h.session.RequestVerification()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.provider.requestCount())
}

func TestSession_TokenFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.tokenErr = errors.New("token service down")
	h.requestCode(t)
	h.session.UpdateVerificationCode(validCode)

	s := h.waitFor(t, "check failed", func(s State) bool { return s.Phase == PhaseCheckFailed })
	assert.Equal(t, MsgCheckFailed, s.ErrorMessage())
	assert.False(t, s.NeedToSignUp())
}

func TestSession_ResetStopsTimer(t *testing.T) {
	h := newHarness(t)
	h.requestCode(t)
	h.advance(t, 1)

	h.session.Reset()
	s := h.waitFor(t, "reset", func(s State) bool { return !s.CodeRequested() })
	assert.Equal(t, ExpirationTime, s.RemainingSeconds)
	assert.False(t, s.TimerRunning)
	version := s.Version

	h.clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, version, h.session.Snapshot().Version)

	h.session.Reset()
	h.session.Reset()
	s = h.waitFor(t, "reset twice", func(s State) bool { return s.Version > version })
	assert.Equal(t, ExpirationTime, s.RemainingSeconds)
	assert.Empty(t, s.PhoneNumber)
}

func TestSession_ResumeDoesNotStallRunningTimer(t *testing.T) {
	h := newHarness(t)
	h.requestCode(t)

	// Resume arrives more often than the tick period.
	var elapsed time.Duration
	for i := 0; i < 5; i++ {
		h.clock.Advance(600 * time.Millisecond)
		elapsed += 600 * time.Millisecond
		want := ExpirationTime - int(elapsed/time.Second)
		h.waitFor(t, "tick", func(s State) bool { return s.RemainingSeconds == want })

		h.session.Resume()
		name := fmt.Sprintf("form-%d", i)
		h.session.UpdateName(name)
		h.waitFor(t, "resume handled", func(s State) bool { return s.Form.Name == name })
	}
	s := h.session.Snapshot()
	assert.Equal(t, ExpirationTime-3, s.RemainingSeconds)
	assert.True(t, s.TimerRunning)
	assert.Equal(t, uint64(1), s.cycle, "ticker was not restarted")
}

func TestSession_Subscribe(t *testing.T) {
	h := newHarness(t)
	ch, cancel := h.session.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, uint64(0), first.Version)

	h.session.UpdatePhoneNumber("01012345678")
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.PhoneNumber == "01012345678" {
				assert.True(t, s.CanRequestVerification())
				return
			}
		case <-deadline:
			t.Fatal("subscriber never saw the phone number")
		}
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ch, cancel := h.session.Subscribe()
	<-ch

	h.session.Close()
	h.session.Close()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	h.session.UpdatePhoneNumber("01012345678")
	late, _ := h.session.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
