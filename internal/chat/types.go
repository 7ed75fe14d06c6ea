// Package chat holds the domain model shared by the REST client, the
// push channel, and the sync components.
package chat

import (
	"crypto/sha256"
	"encoding/hex"
)

// AttachmentKind distinguishes renderable images from generic files.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment is an opaque reference to uploaded content. The sync
// layer preserves attachment order but never interprets contents.
type Attachment struct {
	URL  string         `json:"url"`
	Kind AttachmentKind `json:"kind"`
	Name string         `json:"name"`
}

// Participant is a weak reference to a marketplace user, carried for
// display-name resolution only.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
}

// Message is a chat message as it travels over the wire. ID is the
// canonical backend-assigned identifier; LocalRef, when present,
// echoes the client-generated id of the optimistic send it confirms.
type Message struct {
	ID             string       `json:"id"`
	LocalRef       string       `json:"local_ref,omitempty"`
	ConversationID string       `json:"conversation_id"`
	SenderID       string       `json:"sender_id"`
	Body           string       `json:"body"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      int64        `json:"created_at_unix_ms"`
	Delivered      bool         `json:"delivered"`
	Read           bool         `json:"read"`
}

// Conversation is a summary entry in the sidebar list.
type Conversation struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Participants       []Participant `json:"participants"`
	LastMessagePreview string        `json:"last_message_preview"`
	LastMessageAt      int64         `json:"last_message_at_unix_ms"`
}

// PairID derives the deterministic conversation id for a direct
// conversation between two users. Order-insensitive: PairID(a, b) ==
// PairID(b, a).
func PairID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + "\x00" + b))
	return hex.EncodeToString(sum[:16])
}
