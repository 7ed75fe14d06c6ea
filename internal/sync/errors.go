package sync

import "errors"

var (
	// ErrNoActiveConversation is returned by Send when no conversation
	// is open.
	ErrNoActiveConversation = errors.New("no active conversation")

	// ErrUnknownLocalID is returned by Resend when the local id does
	// not match a failed entry in the active sequence.
	ErrUnknownLocalID = errors.New("unknown or non-failed local message id")
)
