package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kube-rca/soc-console/internal/clock"
)

// SLALevel is the display urgency of a remaining SLA duration.
type SLALevel string

const (
	SLAOverdue SLALevel = "overdue"
	SLAWarning SLALevel = "warning"
	SLANormal  SLALevel = "normal"
)

// SLAWarningThreshold is the remaining time below which an SLA is shown
// as a warning.
const SLAWarningThreshold = time.Hour

// ClassifyRemaining maps a remaining duration onto its display level.
func ClassifyRemaining(remaining time.Duration) SLALevel {
	switch {
	case remaining <= 0:
		return SLAOverdue
	case remaining < SLAWarningThreshold:
		return SLAWarning
	default:
		return SLANormal
	}
}

// FormatRemaining renders a remaining duration as "Xh Ym Zs". Negative
// durations render as zero.
func FormatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	total := int64(remaining / time.Second)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

// SLATimer counts down to a ticket deadline once per second on its own
// goroutine, independent of how often the ticket is fetched.
//
// onTick receives the remaining time after every tick, and a final zero
// when the deadline is reached; the timer is already stopped by then.
// onTick must not call Seed or Stop.
type SLATimer struct {
	clock  clock.Clock
	onTick func(time.Duration)

	// ctl serializes Seed and Stop.
	ctl     sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running atomic.Bool

	deadline atomic.Pointer[time.Time]
}

// NewSLATimer returns a stopped timer. onTick may be nil.
func NewSLATimer(clk clock.Clock, onTick func(time.Duration)) *SLATimer {
	if onTick == nil {
		onTick = func(time.Duration) {}
	}
	return &SLATimer{clock: clk, onTick: onTick}
}

// Seed starts counting down to deadline, replacing any previous
// countdown. Seeding the running deadline again is a no-op; a zero
// deadline stops the timer. An already expired deadline leaves the timer
// stopped at zero.
func (t *SLATimer) Seed(deadline time.Time) {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	if cur := t.deadline.Load(); cur != nil && cur.Equal(deadline) && t.running.Load() {
		return
	}
	t.stopLocked()

	if deadline.IsZero() {
		t.deadline.Store(nil)
		return
	}
	t.deadline.Store(&deadline)
	if t.Remaining() <= 0 {
		return
	}

	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.running.Store(true)
	go t.run(t.clock.NewTicker(time.Second), t.stop, t.done)
}

func (t *SLATimer) run(ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			ticker.Stop()
			return
		case <-ticker.C:
			remaining := t.Remaining()
			if remaining <= 0 {
				ticker.Stop()
				t.running.Store(false)
				t.onTick(0)
				return
			}
			t.onTick(remaining)
		}
	}
}

// Stop halts the countdown and waits for the tick goroutine to exit.
// The deadline is kept.
func (t *SLATimer) Stop() {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	t.stopLocked()
}

func (t *SLATimer) stopLocked() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop, t.done = nil, nil
	t.running.Store(false)
}

// Remaining returns deadline minus now, clamped to zero.
func (t *SLATimer) Remaining() time.Duration {
	deadline := t.deadline.Load()
	if deadline == nil {
		return 0
	}
	remaining := deadline.Sub(t.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *SLATimer) Running() bool {
	return t.running.Load()
}

// Deadline returns the seeded deadline, or the zero time.
func (t *SLATimer) Deadline() time.Time {
	if deadline := t.deadline.Load(); deadline != nil {
		return *deadline
	}
	return time.Time{}
}
