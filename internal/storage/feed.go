package storage

import "sync"

// ChangeKind names the area of client state that changed.
type ChangeKind string

const (
	// ChangeUnread signals a write to the unread_counts table.
	ChangeUnread ChangeKind = "unread"
)

// Change is a storage change notification. Origin identifies the tab
// that performed the write so it can skip reconciling its own change.
type Change struct {
	Kind   ChangeKind
	Origin string
}

// Feed broadcasts storage change notifications to every attached tab,
// mirroring the storage layer's native cross-tab change event. All
// tabs sharing one state database share one Feed.
type Feed struct {
	mu   sync.RWMutex
	subs map[int]chan Change
	next int
}

// NewFeed creates an empty change feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Change)}
}

// Notify broadcasts a change to all attached tabs. Non-blocking; a
// tab that is not draining misses the notification and catches up on
// the next one (tabs reconcile to the full snapshot, not to deltas).
func (f *Feed) Notify(c Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Attach registers a tab and returns its notification channel plus a
// detach function.
func (f *Feed) Attach(bufSize int) (<-chan Change, func()) {
	ch := make(chan Change, bufSize)
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}
