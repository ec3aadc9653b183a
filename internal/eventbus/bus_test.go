package eventbus

import (
	"testing"

	"github.com/google/uuid"
)

func TestPublishPreservesPerTaskOrder(t *testing.T) {
	bus := New(16, nil)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	taskID := uuid.New()
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Channel: ChannelAgentProgressUpdate, TaskID: taskID})
	}

	var lastSeq int64
	for i := 0; i < 5; i++ {
		evt := <-sub.Events
		if evt.Sequence <= lastSeq {
			t.Fatalf("expected strictly increasing sequence, got %d after %d", evt.Sequence, lastSeq)
		}
		lastSeq = evt.Sequence
	}
}

func TestPublishDropsOnFullBacklogWithoutBlocking(t *testing.T) {
	bus := New(1, nil)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(Event{Channel: ChannelLogMessage})
		}
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done // publisher must never block even though nothing drains sub.Events
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(4, nil)
	sub := bus.Subscribe()
	sub.Unsubscribe()

	if _, ok := <-sub.Events; ok {
		t.Fatalf("expected channel closed after unsubscribe")
	}
}

func TestMultipleSubscribersEachReceiveEvent(t *testing.T) {
	bus := New(4, nil)
	sub1 := bus.Subscribe()
	sub2 := bus.Subscribe()
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	bus.Publish(Event{Channel: ChannelAgentStatus})

	if (<-sub1.Events).Channel != ChannelAgentStatus {
		t.Fatalf("expected sub1 to receive the event")
	}
	if (<-sub2.Events).Channel != ChannelAgentStatus {
		t.Fatalf("expected sub2 to receive the event")
	}
}

func TestLogSinkPublishesToLogChannel(t *testing.T) {
	bus := New(4, nil)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	sink := NewLogSink(bus)
	sink.Accept("itemstore", "warn", "something happened", nil)

	evt := <-sub.Events
	if evt.Channel != ChannelLogMessage || evt.LogModule != "itemstore" {
		t.Fatalf("expected log_message event from itemstore, got %+v", evt)
	}
}
