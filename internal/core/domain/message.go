package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser is a question typed by the signed-in user.
	RoleUser Role = "user"

	// RoleAssistant is an AI answer (or a synthesized assistant notice).
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// MessageState is the persistence state of a conversation turn.
// Pending messages are locally synthesized placeholders; they are
// replaced wholesale by their persisted counterpart, never patched.
type MessageState int

const (
	// StatePersisted means the durable store has confirmed the turn
	// and assigned its id and timestamp.
	StatePersisted MessageState = iota

	// StatePending means the turn exists only in the local view,
	// under a client-generated placeholder id.
	StatePending
)

// Message is one conversation turn. The conversation store is the sole
// writer of message sequences; observers are read-only. A message is
// never mutated in place: pending entries are replaced wholesale when
// their persisted counterpart arrives.
type Message struct {
	// ID is assigned by the durable store on persistence. Pending
	// messages carry a client-generated placeholder id instead.
	ID string

	// DocumentID links the turn to its document.
	DocumentID string

	// Role is the author of the turn.
	Role Role

	// Content is the turn text. Assistant content may contain the
	// structured markup produced by the response formatter.
	Content string

	// CreatedAt is the store-assigned creation time for persisted
	// messages, or the local synthesis time for pending ones.
	CreatedAt time.Time

	// Seq is the insertion sequence assigned by the durable store,
	// used to break creation-time ties. Zero for pending messages.
	Seq int64

	// State distinguishes persisted records from local placeholders.
	State MessageState
}

// Pending reports whether the message is a local placeholder.
func (m Message) Pending() bool {
	return m.State == StatePending
}

// Source is a citation attached to an assistant answer. It is
// immutable and embedded in the formatted message content, not
// stored as a separate entity.
type Source struct {
	// Page is the cited page reference. The backend may report it
	// as a number or a label, so it is kept as a string.
	Page string

	// Excerpt is the cited passage from the document.
	Excerpt string
}
