package bus

import "time"

// Event kinds published on the bus. Subscribers filter by prefix, e.g.
// "push." receives everything the push channel decodes.
const (
	KindPushMessage    = "push.message"
	KindPushTyping     = "push.typing"
	KindPushStopTyping = "push.stop_typing"

	KindMessageAppended  = "message.appended"
	KindMessageConfirmed = "message.confirmed"
	KindMessageFailed    = "message.failed"

	KindUnreadChanged       = "unread.changed"
	KindConnectivityChanged = "connectivity.changed"
	KindConversationDeleted = "conversation.deleted"
	KindConversationsSynced = "conversations.synced"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
