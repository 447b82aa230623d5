package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderFilled, 1)
	defer unsub()

	bus.Publish(EventOrderFilled, "payload")

	select {
	case got := <-ch:
		if got != "payload" {
			t.Fatalf("got %v, expected payload", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive published event")
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	_, unsub := bus.Subscribe(EventExecutionResult, 1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		// Buffer is 1; second publish must be dropped, not block.
		bus.Publish(EventExecutionResult, 1)
		bus.Publish(EventExecutionResult, 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventKillSwitchChanged, 1)
	unsub()

	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}

	// Publishing to an unsubscribed topic must be a no-op.
	bus.Publish(EventKillSwitchChanged, "x")
}
