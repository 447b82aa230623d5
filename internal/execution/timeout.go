package execution

import (
	"sync"
	"time"
)

// hardTimeout is the immutable wall-clock execution budget. It is a
// compile-time constant, deliberately not configuration.
const hardTimeout = 30 * time.Second

// lateFillGrace is the fixed window after the hard timeout in which an
// observed fill still counts as a valid (late) execution. The window is
// exclusive at 30s and inclusive at 31s, checked once after the poll loop
// exits rather than extending the loop.
const lateFillGrace = 1 * time.Second

// TimeoutController enforces the execution budget against a monotonic
// clock. T=0 is the first broker submission, not flow entry; Start is
// idempotent so a future retry path cannot reset the budget.
type TimeoutController struct {
	now func() time.Time

	mu        sync.Mutex
	startedAt time.Time
	started   bool
}

// NewTimeoutController creates a controller on the system clock.
func NewTimeoutController() *TimeoutController {
	return newTimeoutController(time.Now)
}

func newTimeoutController(now func() time.Time) *TimeoutController {
	return &TimeoutController{now: now}
}

// Start records T=0. Only the first call has effect.
func (t *TimeoutController) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		t.startedAt = t.now()
		t.started = true
	}
}

// Elapsed returns time since Start, zero before it.
func (t *TimeoutController) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return 0
	}
	return t.now().Sub(t.startedAt)
}

// IsExpired reports whether the budget is spent: elapsed > 30s. A fill
// observed at exactly 30s is still inside the budget.
func (t *TimeoutController) IsExpired() bool {
	return t.Elapsed() > hardTimeout
}

// InGraceWindow reports whether a fill observed now counts as late rather
// than timed out: elapsed in (30s, 31s].
func (t *TimeoutController) InGraceWindow() bool {
	elapsed := t.Elapsed()
	return elapsed > hardTimeout && elapsed <= hardTimeout+lateFillGrace
}

// ElapsedSeconds returns the spent budget in seconds.
func (t *TimeoutController) ElapsedSeconds() float64 {
	return t.Elapsed().Seconds()
}

// TimeRemainingSeconds returns the unspent budget in seconds, never
// negative.
func (t *TimeoutController) TimeRemainingSeconds() float64 {
	remaining := hardTimeout - t.Elapsed()
	if remaining < 0 {
		return 0
	}
	return remaining.Seconds()
}
