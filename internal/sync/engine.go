// Package sync owns the active conversation's message sequence,
// merging history loads, optimistic sends, REST confirmations, and
// push deliveries into one ordered, deduplicated list.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/chat"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/rest"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/unread"
)

// ChatAPI is the slice of the REST client the engine depends on.
type ChatAPI interface {
	History(ctx context.Context, conversationID string) ([]chat.Message, error)
	Send(ctx context.Context, conversationID string, req *rest.SendRequest) (*chat.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
}

// Engine maintains the message sequence for the currently active
// conversation. The sequence is ordered by arrival, never re-sorted
// by timestamp.
type Engine struct {
	viewer string
	api    ChatAPI
	ledger *unread.Ledger
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	mu      sync.Mutex
	active  string
	gen     int
	entries []Entry
	loadErr error
}

// NewEngine creates an engine for the given viewing user.
func NewEngine(viewer string, api ChatAPI, ledger *unread.Ledger, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		viewer: viewer,
		api:    api,
		ledger: ledger,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes the engine to push-channel deliveries on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe(bus.KindPushMessage, 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				if msg, ok := evt.Payload.(*chat.Message); ok {
					e.HandleDelivery(msg)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

// Open switches the active conversation and loads its history
// wholesale. The unread entry is cleared immediately and a one-shot
// mark-read is issued. A load whose conversation is no longer active
// when it resolves is discarded. On a failed load LoadErr reports the
// error; entries appended while the load was in flight are kept.
func (e *Engine) Open(ctx context.Context, conversationID string) error {
	e.mu.Lock()
	e.gen++
	myGen := e.gen
	// Pending sends for this conversation survive a reopen; anything
	// else is dropped with the old sequence.
	var pending []Entry
	if e.active == conversationID {
		for _, entry := range e.entries {
			if entry.State == Pending {
				pending = append(pending, entry)
			}
		}
	}
	e.active = conversationID
	e.entries = nil
	e.loadErr = nil
	e.mu.Unlock()

	e.ledger.Clear(conversationID)
	if err := e.api.MarkRead(ctx, conversationID); err != nil && e.logger != nil {
		e.logger.Warn("mark-read failed", zap.Error(err), zap.String("conversation_id", conversationID))
	}

	history, err := e.api.History(ctx, conversationID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != myGen {
		// A newer Open superseded this load; discard the result.
		return nil
	}
	if err != nil {
		// Entries appended while the load was in flight stay; only
		// the history is missing.
		e.loadErr = err
		return err
	}

	// Sends and push deliveries may have landed in e.entries while the
	// fetch was outstanding; they are folded back in after the history,
	// deduplicated on canonical id and local ref.
	midLoad := e.entries

	entries := make([]Entry, 0, len(history)+len(midLoad))
	for _, m := range history {
		entries = append(entries, Entry{
			State:   Confirmed,
			Self:    m.SenderID == e.viewer,
			Message: m,
		})
	}
	for _, m := range midLoad {
		if indexByCanonical(entries, m.Message.ID) >= 0 {
			continue
		}
		if m.Message.LocalRef != "" && indexByLocalRef(entries, m.Message.LocalRef) >= 0 {
			continue
		}
		entries = append(entries, m)
	}
	// A pending send the reload does not contain never confirmed;
	// demote it to failed rather than dropping the composed content.
	for _, p := range pending {
		if p.Message.LocalRef != "" && indexByLocalRef(entries, p.Message.LocalRef) >= 0 {
			continue
		}
		p.State = Failed
		entries = append(entries, p)
	}
	e.entries = entries
	e.publish(bus.KindMessageAppended, conversationID)
	return nil
}

// OpenDirect opens the direct conversation between the viewer and
// another user, deriving the deterministic pair id so both sides land
// in the same conversation without a server round-trip.
func (e *Engine) OpenDirect(ctx context.Context, otherUserID string) (string, error) {
	conversationID := chat.PairID(e.viewer, otherUserID)
	return conversationID, e.Open(ctx, conversationID)
}

// Send optimistically appends the message with a client-generated
// local id, then posts it. The confirmation replaces the local entry
// in place; a failure flags it Failed and leaves it visible. Returns
// the local id.
func (e *Engine) Send(ctx context.Context, text string, attachments []chat.Attachment) (string, error) {
	localID := uuid.New().String()

	e.mu.Lock()
	conversationID := e.active
	if conversationID == "" {
		e.mu.Unlock()
		return "", ErrNoActiveConversation
	}
	e.entries = append(e.entries, Entry{
		LocalID: localID,
		State:   Pending,
		Self:    true,
		Message: chat.Message{
			LocalRef:       localID,
			ConversationID: conversationID,
			SenderID:       e.viewer,
			Body:           text,
			Attachments:    attachments,
			CreatedAt:      time.Now().UnixMilli(),
		},
	})
	e.mu.Unlock()
	e.publish(bus.KindMessageAppended, conversationID)

	confirmed, err := e.api.Send(ctx, conversationID, &rest.SendRequest{
		LocalRef:    localID,
		Text:        text,
		Attachments: attachments,
	})
	if err != nil {
		e.markFailed(conversationID, localID)
		return localID, err
	}

	e.confirm(conversationID, localID, confirmed)
	return localID, nil
}

// Resend retries a failed entry explicitly. The entry flips back to
// Pending and goes through the normal confirmation path under the
// same local id.
func (e *Engine) Resend(ctx context.Context, localID string) error {
	e.mu.Lock()
	conversationID := e.active
	idx := indexByLocalID(e.entries, localID)
	if idx < 0 || e.entries[idx].State != Failed {
		e.mu.Unlock()
		return ErrUnknownLocalID
	}
	e.entries[idx].State = Pending
	msg := e.entries[idx].Message
	e.mu.Unlock()
	e.publish(bus.KindMessageAppended, conversationID)

	confirmed, err := e.api.Send(ctx, conversationID, &rest.SendRequest{
		LocalRef:    localID,
		Text:        msg.Body,
		Attachments: msg.Attachments,
	})
	if err != nil {
		e.markFailed(conversationID, localID)
		return err
	}
	e.confirm(conversationID, localID, confirmed)
	return nil
}

// HandleDelivery processes a push-channel message event. Deliveries
// for the active conversation append (idempotent on canonical id) and
// trigger a read receipt for foreign senders; deliveries for other
// conversations only bump that conversation's unread count.
func (e *Engine) HandleDelivery(msg *chat.Message) {
	self := msg.SenderID == e.viewer

	e.mu.Lock()
	if msg.ConversationID != e.active {
		e.mu.Unlock()
		if !self {
			e.ledger.Increment(msg.ConversationID)
		}
		return
	}

	changed := false
	switch {
	case msg.LocalRef != "" && indexByLocalID(e.entries, msg.LocalRef) >= 0:
		// Push echo of one of our sends, possibly one whose REST
		// confirmation was lost. Prefer the canonical message.
		idx := indexByLocalID(e.entries, msg.LocalRef)
		e.entries[idx] = Entry{
			LocalID: msg.LocalRef,
			State:   Confirmed,
			Self:    true,
			Message: *msg,
		}
		changed = true
	case indexByCanonical(e.entries, msg.ID) >= 0:
		// Re-delivery of an already-present canonical id: no-op.
	default:
		e.entries = append(e.entries, Entry{
			State:   Confirmed,
			Self:    self,
			Message: *msg,
		})
		changed = true
	}
	conversationID := e.active
	e.mu.Unlock()

	if changed {
		e.publish(bus.KindMessageAppended, conversationID)
	}
	if !self {
		// Read receipt round-trip for the sender's message; never for
		// our own echoes. Unread stays untouched while the
		// conversation is open.
		if err := e.api.MarkRead(context.Background(), conversationID); err != nil && e.logger != nil {
			e.logger.Warn("read receipt failed", zap.Error(err), zap.String("conversation_id", conversationID))
		}
	}
}

// Messages returns a copy of the active sequence in arrival order.
func (e *Engine) Messages() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Entry, len(e.entries))
	copy(out, e.entries)
	return out
}

// ActiveConversation returns the currently open conversation id.
func (e *Engine) ActiveConversation() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// LoadErr reports the error of the last history load, if it failed.
func (e *Engine) LoadErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// confirm replaces the pending entry with its canonical counterpart.
// If the canonical id already arrived via push the local entry is
// removed instead, keeping exactly one entry per canonical id. Stale
// confirmations for a no-longer-active conversation are dropped.
func (e *Engine) confirm(conversationID, localID string, confirmed *chat.Message) {
	e.mu.Lock()
	if e.active != conversationID {
		e.mu.Unlock()
		return
	}
	idx := indexByLocalID(e.entries, localID)
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	if dup := indexByCanonical(e.entries, confirmed.ID); dup >= 0 && dup != idx {
		e.entries = append(e.entries[:idx], e.entries[idx+1:]...)
	} else {
		e.entries[idx] = Entry{
			LocalID: localID,
			State:   Confirmed,
			Self:    true,
			Message: *confirmed,
		}
	}
	e.mu.Unlock()
	e.publish(bus.KindMessageConfirmed, conversationID)
}

func (e *Engine) markFailed(conversationID, localID string) {
	e.mu.Lock()
	if e.active != conversationID {
		e.mu.Unlock()
		return
	}
	if idx := indexByLocalID(e.entries, localID); idx >= 0 {
		e.entries[idx].State = Failed
	}
	e.mu.Unlock()
	e.publish(bus.KindMessageFailed, conversationID)
}

func (e *Engine) publish(kind, conversationID string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   map[string]string{"conversation_id": conversationID},
	})
}

func indexByLocalID(entries []Entry, localID string) int {
	for i, entry := range entries {
		if entry.LocalID == localID {
			return i
		}
	}
	return -1
}

func indexByCanonical(entries []Entry, canonicalID string) int {
	if canonicalID == "" {
		return -1
	}
	for i, entry := range entries {
		if entry.State == Confirmed && entry.Message.ID == canonicalID {
			return i
		}
	}
	return -1
}

func indexByLocalRef(entries []Entry, localRef string) int {
	for i, entry := range entries {
		if entry.Message.LocalRef == localRef {
			return i
		}
	}
	return -1
}
