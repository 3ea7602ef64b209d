// Package verification runs one phone sign-in attempt: code request, countdown, code check,
// identity token exchange and the signup-or-login decision.
//
// A Session serializes every input, tick and collaborator result through a single event loop.
// Collaborators are called off the loop with a bounded timeout; their results come back as events.
package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultCallTimeout bounds each collaborator call.
const DefaultCallTimeout = 15 * time.Second

const inboxSize = 64

// ErrCallTimeout is the failure recorded when a collaborator does not answer within the call timeout.
var ErrCallTimeout = errors.New("verification: call timed out")

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock driving the countdown.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCallTimeout bounds every identity provider and directory call. Non-positive values are ignored.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// Session owns the state of one sign-in attempt. Create one per sign-in screen and Close it on leave.
type Session struct {
	provider  IdentityProvider
	directory UserDirectory
	events    EventLog

	clock       clockwork.Clock
	logger      *zap.Logger
	callTimeout time.Duration
	countdown   *Countdown

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan event
	done   chan struct{}
	exited chan struct{}
	once   sync.Once

	mu    sync.RWMutex
	state State
	subs  map[chan State]struct{}
}

// NewSession starts the event loop. events may be nil.
func NewSession(provider IdentityProvider, directory UserDirectory, events EventLog, opts ...Option) *Session {
	s := &Session{
		provider:    provider,
		directory:   directory,
		events:      events,
		clock:       clockwork.NewRealClock(),
		logger:      zap.NewNop(),
		callTimeout: DefaultCallTimeout,
		inbox:       make(chan event, inboxSize),
		done:        make(chan struct{}),
		exited:      make(chan struct{}),
		state:       InitialState(),
		subs:        make(map[chan State]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.countdown = NewCountdown(s.clock, func(cycle uint64) { s.post(tick{cycle: cycle}) })
	go s.loop()
	return s
}

// UpdatePhoneNumber keeps the digits of raw. Ignored once a code has been requested.
func (s *Session) UpdatePhoneNumber(raw string) { s.post(phoneEdited{raw: raw}) }

// RequestVerification sends a code when the gate allows it.
func (s *Session) RequestVerification() { s.post(requestPressed{}) }

// UpdateVerificationCode keeps up to six digits and submits automatically when a new six-digit code is complete.
func (s *Session) UpdateVerificationCode(raw string) { s.post(codeEdited{raw: raw}) }

// VerifyCode confirms the entered code when the gate allows it.
func (s *Session) VerifyCode() { s.post(verifyPressed{}) }

func (s *Session) UpdateName(v string)  { s.post(formEdited{field: fieldName, value: v}) }
func (s *Session) UpdateModel(v string) { s.post(formEdited{field: fieldModel, value: v}) }

// UpdatePurchasedAt takes a YYYY-MM-DD date; anything else clears the field.
func (s *Session) UpdatePurchasedAt(v string) { s.post(formEdited{field: fieldPurchasedAt, value: v}) }

// UpdateManufacturedAt takes a YYYY-MM-DD date; anything else clears the field.
func (s *Session) UpdateManufacturedAt(v string) {
	s.post(formEdited{field: fieldManufacturedAt, value: v})
}

func (s *Session) UpdateRecipientType(v string) {
	s.post(formEdited{field: fieldRecipientType, value: v})
}

func (s *Session) UpdateSupportedDistrict(v string) {
	s.post(formEdited{field: fieldSupportedDistrict, value: v})
}

// SignUp registers the verified user with the vehicle from vehicleID. An empty id only sets Notice.
func (s *Session) SignUp(vehicleID string) { s.post(signUpPressed{vehicleID: vehicleID}) }

// Reset returns to the initial state, stops the timer and drops results of calls still in flight.
func (s *Session) Reset() { s.post(resetRequested{}) }

// Resume restarts the tick source when a code is outstanding and time remains.
func (s *Session) Resume() { s.post(resumeRequested{}) }

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a channel that always holds the latest state; intermediate states may be skipped.
// The channel is closed by the returned func or by Close.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	ch <- s.state
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Close stops the loop, the timer and calls in flight. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		<-s.exited
		s.countdown.Stop()

		s.mu.Lock()
		for ch := range s.subs {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	})
}

func (s *Session) post(ev event) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.inbox <- ev:
	case <-s.done:
	}
}

func (s *Session) loop() {
	defer close(s.exited)
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.inbox:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev event) {
	prev := s.Snapshot()
	next, effects := reduce(prev, ev)
	for _, e := range effects {
		s.run(e)
	}
	if next == prev {
		return
	}
	next.Version = prev.Version + 1

	if next.Phase != prev.Phase {
		s.logger.Info("sign-in phase changed",
			zap.Stringer("from", prev.Phase),
			zap.Stringer("to", next.Phase),
		)
	}

	s.mu.Lock()
	s.state = next
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Session) run(e effect) {
	switch e := e.(type) {
	case startTimer:
		s.countdown.Start(e.cycle)
	case stopTimer:
		s.countdown.Stop()
	case recordEvent:
		if s.events != nil {
			s.events.Record(context.Background(), e.title, e.description, e.fatal)
		}

	case callRequest:
		s.call("request_code", func(ctx context.Context) event {
			h, err := s.provider.RequestCode(ctx, e.e164)
			return requestDone{epoch: e.epoch, handle: h, err: err}
		}, func(err error) event {
			return requestDone{epoch: e.epoch, err: err}
		})
	case callVerify:
		s.call("confirm_code", func(ctx context.Context) event {
			id, err := s.provider.Confirm(ctx, e.handle, e.code)
			return verifyDone{epoch: e.epoch, identity: id, err: err}
		}, func(err error) event {
			return verifyDone{epoch: e.epoch, err: err}
		})
	case callToken:
		identity := e.identity
		s.call("identity_token", func(ctx context.Context) event {
			tok, err := s.provider.Token(ctx, &identity)
			return tokenDone{epoch: e.epoch, token: tok, err: err}
		}, func(err error) event {
			return tokenDone{epoch: e.epoch, err: err}
		})
	case callCheck:
		s.call("check_user", func(ctx context.Context) event {
			res, err := s.directory.CheckExists(ctx, e.token)
			return checkDone{epoch: e.epoch, result: res, err: err}
		}, func(err error) event {
			return checkDone{epoch: e.epoch, err: err}
		})
	case callSignUp:
		profile := e.profile
		s.call("sign_up", func(ctx context.Context) event {
			u, err := s.directory.Create(ctx, e.token, &profile)
			return signUpDone{epoch: e.epoch, user: u, err: err}
		}, func(err error) event {
			return signUpDone{epoch: e.epoch, err: err}
		})

	default:
		s.logger.Warn("unknown effect", zap.String("type", fmt.Sprintf("%T", e)))
	}
}

// call runs fn off the loop and posts its result. If fn outlives the call timeout, failed(ErrCallTimeout)
// is posted instead and the late result is discarded.
func (s *Session) call(name string, fn func(ctx context.Context) event, failed func(error) event) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.callTimeout)
		defer cancel()

		result := make(chan event, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					result <- failed(fmt.Errorf("verification: %s panicked: %v", name, r))
				}
			}()
			result <- fn(ctx)
		}()

		select {
		case ev := <-result:
			if err := eventErr(ev); err != nil {
				s.logger.Warn("sign-in call failed", zap.String("call", name), zap.Error(err))
			}
			s.post(ev)
		case <-ctx.Done():
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("sign-in call timed out", zap.String("call", name), zap.Duration("timeout", s.callTimeout))
			s.post(failed(fmt.Errorf("%s: %w", name, ErrCallTimeout)))
		}
	}()
}

func eventErr(ev event) error {
	switch ev := ev.(type) {
	case requestDone:
		return ev.err
	case verifyDone:
		return ev.err
	case tokenDone:
		return ev.err
	case checkDone:
		return ev.err
	case signUpDone:
		return ev.err
	}
	return nil
}
