package typing

import (
	"context"
	"testing"
	"time"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
)

func TestAnnounceAndExpiry(t *testing.T) {
	c := NewCoordinator(50 * time.Millisecond)

	c.AnnounceTyping("c1", "bob")
	if c.Typer("c1") != "bob" {
		t.Errorf("typer = %q, want bob", c.Typer("c1"))
	}

	time.Sleep(120 * time.Millisecond)
	if c.Typer("c1") != "" {
		t.Error("indicator should have expired")
	}
}

func TestReannounceResetsTimer(t *testing.T) {
	c := NewCoordinator(80 * time.Millisecond)

	c.AnnounceTyping("c1", "bob")
	time.Sleep(50 * time.Millisecond)
	c.AnnounceTyping("c1", "bob")
	time.Sleep(50 * time.Millisecond)

	// 100ms after the first announce, but only 50ms after the reset.
	if c.Typer("c1") != "bob" {
		t.Error("re-announce should have reset the expiry timer")
	}
}

func TestAnnounceStopped(t *testing.T) {
	c := NewCoordinator(time.Second)

	c.AnnounceTyping("c1", "bob")
	c.AnnounceStopped("c1")
	if c.Typer("c1") != "" {
		t.Error("indicator should clear immediately on stop")
	}
}

func TestSubscribe(t *testing.T) {
	c := NewCoordinator(time.Second)

	var got []string
	unsub := c.Subscribe("c1", func(who string) { got = append(got, who) })
	defer unsub()

	if len(got) != 1 || got[0] != "" {
		t.Fatalf("immediate callback = %v, want [\"\"]", got)
	}

	c.AnnounceTyping("c1", "bob")
	c.AnnounceStopped("c1")

	if len(got) != 3 || got[1] != "bob" || got[2] != "" {
		t.Errorf("callbacks = %v, want [\"\" bob \"\"]", got)
	}
}

func TestSubscribeScopedToConversation(t *testing.T) {
	c := NewCoordinator(time.Second)

	calls := 0
	unsub := c.Subscribe("c1", func(string) { calls++ })
	defer unsub()

	c.AnnounceTyping("c2", "bob")
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (immediate only)", calls)
	}
}

func TestBusFeed(t *testing.T) {
	c := NewCoordinator(time.Second)
	b := bus.New()
	c.Start(context.Background(), b)
	defer c.Stop()

	b.Publish(bus.Event{
		Kind:      bus.KindPushTyping,
		Timestamp: time.Now(),
		Payload:   Signal{ConversationID: "c1", Who: "bob"},
	})

	waitFor(t, func() bool { return c.Typer("c1") == "bob" }, "typing signal")

	b.Publish(bus.Event{
		Kind:      bus.KindPushStopTyping,
		Timestamp: time.Now(),
		Payload:   Signal{ConversationID: "c1"},
	})

	waitFor(t, func() bool { return c.Typer("c1") == "" }, "stop signal")
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

// A timer that fired just as a fresh announcement re-armed the expiry
// must not clear the new typer: the callback only acts on the
// generation it was armed with.
func TestStaleExpiryIgnored(t *testing.T) {
	c := NewCoordinator(time.Minute)

	c.AnnounceTyping("c1", "alice")
	staleGen := c.gens["c1"]
	c.AnnounceTyping("c1", "alice")

	c.expire("c1", staleGen)
	if got := c.Typer("c1"); got != "alice" {
		t.Errorf("Typer = %q, want alice untouched by the stale expiry", got)
	}

	c.expire("c1", c.gens["c1"])
	if got := c.Typer("c1"); got != "" {
		t.Errorf("Typer = %q, want cleared by the current expiry", got)
	}
}
