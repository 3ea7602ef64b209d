package eventlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"soori/internal/eventlog/domain"
)

// mockSink implements Sink for tests.
type mockSink struct {
	mu      sync.Mutex
	events  []*domain.Event
	emitErr error
	delay   time.Duration
	ctxErr  error
}

func (m *mockSink) Emit(ctx context.Context, event *domain.Event) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.ctxErr = ctx.Err()
			m.mu.Unlock()
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockSink) getEvents() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Event(nil), m.events...)
}

func TestRecorder_FansOutToEverySink(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	a, b := &mockSink{}, &mockSink{}
	r := NewRecorder("signin", map[string]Sink{"a": a, "b": b, "off": nil}, clock, nil)

	r.Record(context.Background(), "인증번호 발송 성공", "01012345678", false)
	r.Close()

	for name, s := range map[string]*mockSink{"a": a, "b": b} {
		events := s.getEvents()
		if len(events) != 1 {
			t.Fatalf("sink %s got %d events, want 1", name, len(events))
		}
		ev := events[0]
		if ev.Title != "인증번호 발송 성공" || ev.Description != "01012345678" || ev.Fatal {
			t.Errorf("sink %s event = %+v", name, ev)
		}
		if ev.Source != "signin" {
			t.Errorf("source = %q, want signin", ev.Source)
		}
		if ev.ID == "" {
			t.Error("event ID should be set")
		}
		if !ev.CreatedAt.Equal(clock.Now()) {
			t.Errorf("CreatedAt = %v, want %v", ev.CreatedAt, clock.Now())
		}
	}
	if a.getEvents()[0] != b.getEvents()[0] {
		t.Error("sinks should share the same event")
	}
}

func TestRecorder_SinkFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	failing := &mockSink{emitErr: errors.New("webhook down")}
	r := NewRecorder("signin", map[string]Sink{"discord": failing}, nil, zap.New(core))

	r.Record(context.Background(), "회원가입 실패", "boom", true)
	r.Close()

	entries := logs.FilterMessage("event emit failed").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d failures, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["sink"]; got != "discord" {
		t.Errorf("sink field = %v, want discord", got)
	}
}

func TestRecorder_SinkPanicIsRecovered(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	panicky := SinkFunc(func(context.Context, *domain.Event) error { panic("boom") })
	r := NewRecorder("signin", map[string]Sink{"panicky": panicky}, nil, zap.New(core))

	r.Record(context.Background(), "t", "d", false)
	r.Close()

	if logs.Len() != 1 {
		t.Fatalf("logged %d entries, want 1", logs.Len())
	}
}

func TestRecorder_CancelledCallerStillDelivers(t *testing.T) {
	s := &mockSink{delay: 10 * time.Millisecond}
	r := NewRecorder("signin", map[string]Sink{"slow": s}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, "t", "d", false)
	r.Close()

	if len(s.getEvents()) != 1 {
		t.Fatal("event should be delivered despite cancelled caller context")
	}
}

func TestRecorder_RecordReturnsImmediately(t *testing.T) {
	s := &mockSink{delay: 200 * time.Millisecond}
	r := NewRecorder("signin", map[string]Sink{"slow": s}, nil, nil)
	defer r.Close()

	start := time.Now()
	r.Record(context.Background(), "t", "d", false)
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Record blocked for %v", elapsed)
	}
}

func TestRecorder_AfterCloseIsDropped(t *testing.T) {
	s := &mockSink{}
	r := NewRecorder("signin", map[string]Sink{"s": s}, nil, nil)
	r.Close()
	r.Record(context.Background(), "t", "d", false)
	time.Sleep(10 * time.Millisecond)
	if len(s.getEvents()) != 0 {
		t.Error("events recorded after Close should be dropped")
	}
}
