// Package unread owns the per-conversation unread counts: a persisted
// map shared across tabs, reconciled last-snapshot-wins.
package unread

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/storage"
)

// Ledger is one tab's view of the unread map. The in-memory map stays
// authoritative for this tab even when persistence fails; durability
// is best-effort for a notification badge.
type Ledger struct {
	mu     sync.Mutex
	counts map[string]int

	tabID  string
	db     *storage.DB
	feed   *storage.Feed
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewLedger creates a ledger seeded from the persisted map.
func NewLedger(db *storage.DB, feed *storage.Feed, b *bus.Bus, logger *zap.Logger) *Ledger {
	l := &Ledger{
		counts: make(map[string]int),
		tabID:  uuid.New().String(),
		db:     db,
		feed:   feed,
		bus:    b,
		logger: logger,
	}
	if persisted, err := db.UnreadMap(); err == nil {
		l.counts = persisted
	} else if logger != nil {
		logger.Warn("failed to load persisted unread map", zap.Error(err))
	}
	return l
}

// Start attaches the ledger to the cross-tab change feed. Changes
// originating from other tabs trigger a wholesale reload of the
// persisted map.
func (l *Ledger) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	ch, detach := l.feed.Attach(64)

	go func() {
		defer detach()
		for {
			select {
			case change := <-ch:
				if change.Kind != storage.ChangeUnread || change.Origin == l.tabID {
					continue
				}
				l.reconcile()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop detaches the ledger from the feed.
func (l *Ledger) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}

// Increment raises a conversation's count by one, persists, and
// broadcasts.
func (l *Ledger) Increment(conversationID string) {
	l.mu.Lock()
	l.counts[conversationID]++
	count := l.counts[conversationID]
	l.mu.Unlock()

	l.persist(conversationID, count)
	l.broadcast()
}

// Clear sets a conversation's count to zero, persists, and broadcasts.
func (l *Ledger) Clear(conversationID string) {
	l.mu.Lock()
	l.counts[conversationID] = 0
	l.mu.Unlock()

	l.persist(conversationID, 0)
	l.broadcast()
}

// Remove deletes a conversation's entry entirely, persists, and
// broadcasts.
func (l *Ledger) Remove(conversationID string) {
	l.mu.Lock()
	delete(l.counts, conversationID)
	l.mu.Unlock()

	if err := l.db.DeleteUnread(conversationID); err != nil && l.logger != nil {
		l.logger.Warn("failed to persist unread removal", zap.Error(err), zap.String("conversation_id", conversationID))
	}
	l.broadcast()
}

// Snapshot returns a copy of the current map.
func (l *Ledger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.counts)
}

// Count returns the current count for one conversation.
func (l *Ledger) Count(conversationID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[conversationID]
}

// reconcile replaces the in-memory map with the persisted snapshot.
// Tabs never merge deltas; the stored map is ground truth whenever
// another tab writes.
func (l *Ledger) reconcile() {
	persisted, err := l.db.UnreadMap()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("failed to reconcile unread map", zap.Error(err))
		}
		return
	}
	l.mu.Lock()
	l.counts = persisted
	l.mu.Unlock()
	l.publish()
}

// persist writes one entry. Persistence failures are swallowed: the
// in-memory map stays authoritative for this tab session.
func (l *Ledger) persist(conversationID string, count int) {
	if err := l.db.SetUnread(conversationID, count); err != nil && l.logger != nil {
		l.logger.Warn("failed to persist unread count", zap.Error(err), zap.String("conversation_id", conversationID))
	}
}

func (l *Ledger) broadcast() {
	l.feed.Notify(storage.Change{Kind: storage.ChangeUnread, Origin: l.tabID})
	l.publish()
}

func (l *Ledger) publish() {
	if l.bus == nil {
		return
	}
	l.bus.Publish(bus.Event{
		Kind:      bus.KindUnreadChanged,
		Timestamp: time.Now(),
		Payload:   l.Snapshot(),
	})
}
