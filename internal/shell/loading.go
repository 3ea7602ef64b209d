package shell

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// MinLoadingVisible is how long the loading indicator stays up once shown.
const MinLoadingVisible = 500 * time.Millisecond

// Loading decides whether the loading indicator is visible. Once shown it stays for at least
// MinLoadingVisible even if the work finishes sooner.
type Loading struct {
	clock   clockwork.Clock
	min     time.Duration
	busy    bool
	visible bool
	shownAt time.Time
}

// NewLoading returns a hidden indicator. A nil clock uses the real clock.
func NewLoading(clock clockwork.Clock) *Loading {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loading{clock: clock, min: MinLoadingVisible}
}

// Set records whether work is in flight. When the indicator must stay up a little longer,
// recheck is how long to wait before calling Refresh; otherwise it is zero.
func (l *Loading) Set(busy bool) (recheck time.Duration) {
	l.busy = busy
	return l.Refresh()
}

// Refresh re-evaluates visibility against the clock.
func (l *Loading) Refresh() (recheck time.Duration) {
	now := l.clock.Now()
	if l.busy {
		if !l.visible {
			l.visible = true
			l.shownAt = now
		}
		return 0
	}
	if !l.visible {
		return 0
	}
	if shown := now.Sub(l.shownAt); shown < l.min {
		return l.min - shown
	}
	l.visible = false
	return 0
}

// Visible reports whether the indicator should be drawn.
func (l *Loading) Visible() bool { return l.visible }
