// Package typing tracks the ephemeral per-conversation typing
// indicator. State is never persisted and never enters message
// history.
package typing

import (
	"context"
	"sync"
	"time"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
)

// Handler receives the current typer label, or "" when nobody is
// typing.
type Handler func(who string)

// Coordinator holds at most one active typer per conversation, expired
// on a resettable timer. The remote "stopped typing" signal may be
// lost; local expiry guarantees the indicator never lingers.
type Coordinator struct {
	mu     sync.Mutex
	ttl    time.Duration
	typers map[string]string
	timers map[string]*time.Timer
	gens   map[string]int
	subs   map[string]map[int]Handler
	next   int
	cancel context.CancelFunc
}

// NewCoordinator creates a coordinator with the given expiry duration.
func NewCoordinator(ttl time.Duration) *Coordinator {
	if ttl <= 0 {
		ttl = 1200 * time.Millisecond
	}
	return &Coordinator{
		ttl:    ttl,
		typers: make(map[string]string),
		timers: make(map[string]*time.Timer),
		gens:   make(map[string]int),
		subs:   make(map[string]map[int]Handler),
	}
}

// Start feeds the coordinator from push-channel typing events on the
// bus.
func (c *Coordinator) Start(ctx context.Context, b *bus.Bus) {
	ctx, c.cancel = context.WithCancel(ctx)
	ch, unsub := b.Subscribe(bus.KindPushTyping, 64)
	stopCh, stopUnsub := b.Subscribe(bus.KindPushStopTyping, 64)

	go func() {
		defer unsub()
		defer stopUnsub()
		for {
			select {
			case evt := <-ch:
				if p, ok := evt.Payload.(Signal); ok {
					c.AnnounceTyping(p.ConversationID, p.Who)
				}
			case evt := <-stopCh:
				if p, ok := evt.Payload.(Signal); ok {
					c.AnnounceStopped(p.ConversationID)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the bus feed. Pending expiry timers still fire.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Signal is the payload of push.typing / push.stop_typing bus events.
type Signal struct {
	ConversationID string
	Who            string
}

// AnnounceTyping records who is typing in a conversation and
// (re)starts the expiry timer. A repeat announcement resets the timer
// rather than stacking a second one.
func (c *Coordinator) AnnounceTyping(conversationID, who string) {
	c.mu.Lock()
	c.typers[conversationID] = who
	c.gens[conversationID]++
	gen := c.gens[conversationID]
	if t, ok := c.timers[conversationID]; ok {
		t.Stop()
	}
	c.timers[conversationID] = time.AfterFunc(c.ttl, func() {
		c.expire(conversationID, gen)
	})
	c.mu.Unlock()

	c.notify(conversationID, who)
}

// expire clears the indicator unless a newer announcement replaced the
// one that armed this timer. An already-fired timer whose Stop came
// too late is a no-op here.
func (c *Coordinator) expire(conversationID string, gen int) {
	c.mu.Lock()
	if c.gens[conversationID] != gen {
		c.mu.Unlock()
		return
	}
	delete(c.timers, conversationID)
	_, wasTyping := c.typers[conversationID]
	delete(c.typers, conversationID)
	c.mu.Unlock()

	if wasTyping {
		c.notify(conversationID, "")
	}
}

// AnnounceStopped clears the indicator immediately.
func (c *Coordinator) AnnounceStopped(conversationID string) {
	c.mu.Lock()
	c.gens[conversationID]++
	if t, ok := c.timers[conversationID]; ok {
		t.Stop()
		delete(c.timers, conversationID)
	}
	_, wasTyping := c.typers[conversationID]
	delete(c.typers, conversationID)
	c.mu.Unlock()

	if wasTyping {
		c.notify(conversationID, "")
	}
}

// Typer returns the current typer label for a conversation, or "".
func (c *Coordinator) Typer(conversationID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typers[conversationID]
}

// Subscribe registers a handler for one conversation's indicator. The
// handler is invoked immediately with the current value and on every
// change; returns an unsubscribe function.
func (c *Coordinator) Subscribe(conversationID string, h Handler) func() {
	c.mu.Lock()
	if c.subs[conversationID] == nil {
		c.subs[conversationID] = make(map[int]Handler)
	}
	id := c.next
	c.next++
	c.subs[conversationID][id] = h
	current := c.typers[conversationID]
	c.mu.Unlock()

	h(current)

	return func() {
		c.mu.Lock()
		delete(c.subs[conversationID], id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) notify(conversationID, who string) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subs[conversationID]))
	for _, h := range c.subs[conversationID] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(who)
	}
}
