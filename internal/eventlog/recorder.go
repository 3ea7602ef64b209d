// Package eventlog records diagnostic events from sign-in sessions and fans them out to sinks.
package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"soori/internal/eventlog/domain"
	"soori/internal/verification"
)

// emitTimeout is the max time allowed for one sink emit. Also the drain budget of Close.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long Close waits for in-flight emits. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// Recorder implements verification.EventLog. Record returns immediately; each sink is called in its own goroutine.
type Recorder struct {
	sinks  map[string]Sink
	source string
	clock  clockwork.Clock
	logger *zap.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ verification.EventLog = (*Recorder)(nil)

// NewRecorder returns a Recorder tagging events with source. sinks is keyed by a name used in logs; nil sinks are skipped.
// A nil clock uses the real clock and a nil logger discards output.
func NewRecorder(source string, sinks map[string]Sink, clock clockwork.Clock, logger *zap.Logger) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make(map[string]Sink, len(sinks))
	for name, s := range sinks {
		if s != nil {
			active[name] = s
		}
	}
	return &Recorder{sinks: active, source: source, clock: clock, logger: logger}
}

// Record builds an event and hands it to every sink. Failures are logged and never reach the caller.
// ctx is not used for the emits, so a cancelled caller does not abort delivery.
func (r *Recorder) Record(_ context.Context, title, description string, fatal bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	event := &domain.Event{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Fatal:       fatal,
		Source:      r.source,
		CreatedAt:   r.clock.Now().UTC(),
	}
	for name, s := range r.sinks {
		r.wg.Add(1)
		go r.emit(name, s, event)
	}
}

func (r *Recorder) emit(name string, s Sink, event *domain.Event) {
	defer r.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("event sink panicked", zap.String("sink", name), zap.String("panic", fmt.Sprint(p)))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	if err := s.Emit(ctx, event); err != nil {
		r.logger.Warn("event emit failed",
			zap.String("sink", name),
			zap.String("title", event.Title),
			zap.Error(err),
		)
	}
}

// Close stops accepting events and waits up to ShutdownDrainDuration for in-flight emits.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ShutdownDrainDuration):
		r.logger.Warn("event log closed with emits in flight")
	}
}
