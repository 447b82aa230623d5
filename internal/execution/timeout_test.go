package execution

import (
	"testing"
	"time"
)

// manualClock is a settable clock for deterministic budget tests.
type manualClock struct {
	t time.Time
}

func (c *manualClock) now() time.Time { return c.t }

func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestHardTimeoutIsThirtySeconds(t *testing.T) {
	if hardTimeout != 30*time.Second {
		t.Fatalf("hardTimeout=%v, expected 30s", hardTimeout)
	}
	if lateFillGrace != time.Second {
		t.Fatalf("lateFillGrace=%v, expected 1s", lateFillGrace)
	}
}

func TestTimeoutBoundary(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	tc := newTimeoutController(clock.now)
	tc.Start()

	clock.advance(30 * time.Second)
	if tc.IsExpired() {
		t.Fatal("expired at t=30.000s; the budget edge is inclusive")
	}

	clock.advance(time.Millisecond)
	if !tc.IsExpired() {
		t.Fatal("not expired at t=30.001s")
	}
}

func TestGraceWindowBoundaries(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		inGrace bool
	}{
		{30 * time.Second, false}, // exclusive lower edge
		{30*time.Second + time.Millisecond, true},
		{30*time.Second + 500*time.Millisecond, true},
		{31 * time.Second, true}, // inclusive upper edge
		{31*time.Second + time.Millisecond, false},
	}

	for _, tt := range tests {
		clock := &manualClock{t: time.Unix(1000, 0)}
		tc := newTimeoutController(clock.now)
		tc.Start()
		clock.advance(tt.elapsed)
		if got := tc.InGraceWindow(); got != tt.inGrace {
			t.Errorf("InGraceWindow at %v = %v, expected %v", tt.elapsed, got, tt.inGrace)
		}
	}
}

func TestStartIsIdempotent(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	tc := newTimeoutController(clock.now)
	tc.Start()

	clock.advance(29 * time.Second)
	tc.Start() // must not reset the budget
	clock.advance(time.Second)

	if !tc.IsExpired() {
		t.Fatal("second Start reset the budget")
	}
}

func TestElapsedAndRemaining(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	tc := newTimeoutController(clock.now)

	if tc.ElapsedSeconds() != 0 {
		t.Fatal("elapsed before Start should be zero")
	}
	if tc.IsExpired() {
		t.Fatal("expired before Start")
	}

	tc.Start()
	clock.advance(12 * time.Second)

	if got := tc.ElapsedSeconds(); got != 12 {
		t.Fatalf("ElapsedSeconds=%v, expected 12", got)
	}
	if got := tc.TimeRemainingSeconds(); got != 18 {
		t.Fatalf("TimeRemainingSeconds=%v, expected 18", got)
	}

	clock.advance(25 * time.Second)
	if got := tc.TimeRemainingSeconds(); got != 0 {
		t.Fatalf("TimeRemainingSeconds=%v, expected clamp to 0", got)
	}
}
