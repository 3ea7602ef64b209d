package verification

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown is the cancellable tick source behind the code expiry timer.
// It never touches State; it only reports ticks tagged with the cycle they were started for.
type Countdown struct {
	clock  clockwork.Clock
	period time.Duration
	emit   func(cycle uint64)

	mu   sync.Mutex
	stop chan struct{}
}

// NewCountdown returns a stopped countdown that calls emit once per second while running.
func NewCountdown(clock clockwork.Clock, emit func(cycle uint64)) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{clock: clock, period: time.Second, emit: emit}
}

// Start cancels any running tick source and begins a new one for cycle.
// The ticker exists when Start returns.
func (c *Countdown) Start(cycle uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	ticker := c.clock.NewTicker(c.period)
	stop := make(chan struct{})
	c.stop = stop

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				select {
				case <-stop:
					return
				default:
				}
				c.emit(cycle)
			}
		}
	}()
}

// Stop cancels the tick source. Safe to call when not running.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Running reports whether a tick source is active.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Countdown) stopLocked() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
}
