// Package convlist maintains the sidebar conversation list: summary,
// resolved title, and unread badge per conversation.
package convlist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/chat"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/unread"
)

// ListAPI is the slice of the REST client the list depends on.
type ListAPI interface {
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	Delete(ctx context.Context, conversationID string) error
}

// Item is one sidebar entry.
type Item struct {
	Conversation chat.Conversation
	Title        string
	Unread       int
}

// ListSync keeps the conversation list current. The list is small, so
// every signal triggers a wholesale refresh rather than incremental
// patching.
type ListSync struct {
	viewer string
	api    ListAPI
	ledger *unread.Ledger
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	mu    sync.Mutex
	items []Item
}

// NewListSync creates a list sync for the given viewing user.
func NewListSync(viewer string, api ListAPI, ledger *unread.Ledger, b *bus.Bus, logger *zap.Logger) *ListSync {
	return &ListSync{
		viewer: viewer,
		api:    api,
		ledger: ledger,
		bus:    b,
		logger: logger,
	}
}

// Start performs the mount refresh and re-refreshes on unread ledger
// changes and deletions.
func (s *ListSync) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	unreadCh, unsubUnread := s.bus.Subscribe(bus.KindUnreadChanged, 64)
	deletedCh, unsubDeleted := s.bus.Subscribe(bus.KindConversationDeleted, 16)

	if err := s.Refresh(ctx); err != nil && s.logger != nil {
		s.logger.Warn("initial conversation list refresh failed", zap.Error(err))
	}

	go func() {
		defer unsubUnread()
		defer unsubDeleted()
		for {
			select {
			case <-unreadCh:
				s.refreshLogged(ctx)
			case <-deletedCh:
				s.refreshLogged(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the refresh loop.
func (s *ListSync) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Refresh replaces the list wholesale from the backend and merges the
// current unread snapshot.
func (s *ListSync) Refresh(ctx context.Context) error {
	conversations, err := s.api.ListConversations(ctx)
	if err != nil {
		return err
	}
	counts := s.ledger.Snapshot()

	items := make([]Item, 0, len(conversations))
	for _, c := range conversations {
		items = append(items, Item{
			Conversation: c,
			Title:        ResolveTitle(c, s.viewer),
			Unread:       counts[c.ID],
		})
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(bus.Event{
			Kind:      bus.KindConversationsSynced,
			Timestamp: time.Now(),
			Payload:   len(items),
		})
	}
	return nil
}

// Delete soft-deletes a conversation for this user: it disappears
// from this list and its unread entry is removed. The other
// participant's copy is untouched, and there is no undo — callers
// must confirm with the user first.
func (s *ListSync) Delete(ctx context.Context, conversationID string) error {
	if err := s.api.Delete(ctx, conversationID); err != nil {
		return err
	}
	s.ledger.Remove(conversationID)

	s.mu.Lock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.Conversation.ID != conversationID {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(bus.Event{
			Kind:      bus.KindConversationDeleted,
			Timestamp: time.Now(),
			Payload:   conversationID,
		})
	}
	return nil
}

// Snapshot returns a copy of the current list.
func (s *ListSync) Snapshot() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *ListSync) refreshLogged(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && s.logger != nil {
		s.logger.Warn("conversation list refresh failed", zap.Error(err))
	}
}

// ResolveTitle picks a non-empty human-meaningful label: explicit
// title, then the other participant's display name, then their
// handle, then the raw conversation id.
func ResolveTitle(c chat.Conversation, viewer string) string {
	if c.Title != "" {
		return c.Title
	}
	for _, p := range c.Participants {
		if p.ID == viewer {
			continue
		}
		if p.DisplayName != "" {
			return p.DisplayName
		}
		if p.Handle != "" {
			return p.Handle
		}
	}
	return c.ID
}
