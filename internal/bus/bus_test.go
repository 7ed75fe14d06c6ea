package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("unread.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindUnreadChanged, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindUnreadChanged {
			t.Errorf("got kind %q, want %q", evt.Kind, KindUnreadChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("push.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindUnreadChanged})
	b.Publish(Event{Kind: KindPushMessage})

	select {
	case evt := <-ch:
		if evt.Kind != KindPushMessage {
			t.Errorf("got kind %q, want %q", evt.Kind, KindPushMessage)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the unread event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestStopTypingNotMatchedByTypingPrefix(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(KindPushTyping, 10)
	defer unsub()

	b.Publish(Event{Kind: KindPushStopTyping})

	select {
	case evt := <-ch:
		t.Errorf("stop_typing delivered to typing subscriber: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("unread.", 10)
	unsub()

	b.Publish(Event{Kind: KindUnreadChanged})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 1)
	defer unsub()

	// Fill buffer.
	b.Publish(Event{Kind: KindMessageAppended})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: KindMessageConfirmed})

	evt := <-ch
	if evt.Kind != KindMessageAppended {
		t.Errorf("got %q, want %q", evt.Kind, KindMessageAppended)
	}
}
