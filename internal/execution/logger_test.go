package execution

import (
	"testing"
)

func TestLoggerAppendsInOrder(t *testing.T) {
	l := NewLogger(nil)

	l.Record("adv-1", LogExecutionStart, map[string]any{"symbol": "ETHUSDT"})
	l.Record("adv-2", LogExecutionStart, nil)
	l.Record("adv-1", LogOrderSubmitted, map[string]any{"order_id": "ord-1"})
	l.Record("adv-1", LogExecutionResult, map[string]any{"stage": "FILLED"})

	entries := l.Entries("adv-1")
	if len(entries) != 3 {
		t.Fatalf("len=%d, expected 3", len(entries))
	}
	want := []LogEvent{LogExecutionStart, LogOrderSubmitted, LogExecutionResult}
	for i, e := range entries {
		if e.Event != want[i] {
			t.Fatalf("entry %d: event=%s, expected %s", i, e.Event, want[i])
		}
		if e.ID == "" {
			t.Fatalf("entry %d has no id", i)
		}
		if e.Timestamp.IsZero() {
			t.Fatalf("entry %d has no timestamp", i)
		}
	}

	if got := l.Entries("adv-2"); len(got) != 1 {
		t.Fatalf("adv-2 len=%d", len(got))
	}
	if got := l.Entries("adv-unknown"); len(got) != 0 {
		t.Fatalf("unknown advisory returned %d entries", len(got))
	}
}

func TestLoggerReturnsCopies(t *testing.T) {
	l := NewLogger(nil)
	l.Record("adv-1", LogOrderFilled, map[string]any{"fill_price": 152.0})

	first := l.Entries("adv-1")
	first[0].Details["fill_price"] = 0.0
	first[0].Event = LogTimeout

	second := l.Entries("adv-1")
	if second[0].Event != LogOrderFilled {
		t.Fatalf("event mutated through returned slice: %s", second[0].Event)
	}
	if second[0].Details["fill_price"] != 152.0 {
		t.Fatalf("details mutated through returned map: %v", second[0].Details["fill_price"])
	}
}
