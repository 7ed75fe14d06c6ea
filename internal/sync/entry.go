package sync

import "github.com/Imrannnnn/Skillconnect-sub001/internal/chat"

// State tags an entry's reconciliation state. An entry is born
// Pending from an optimistic send and either becomes Confirmed (REST
// confirmation or push echo) or Failed (network/application error on
// the send, or absent from a history reload). History and push
// deliveries enter Confirmed directly.
type State string

const (
	Pending   State = "PENDING"
	Confirmed State = "CONFIRMED"
	Failed    State = "FAILED"
)

// Entry is one message in the active conversation's sequence.
// LocalID is the client-generated id correlating an optimistic send
// with its confirmation; it is empty for entries that arrived already
// canonical. Message.ID carries the canonical id once known.
type Entry struct {
	LocalID string
	State   State
	Self    bool
	Message chat.Message
}
