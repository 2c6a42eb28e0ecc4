package driving

import (
	"context"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

// Conversation is what a chat page binds to: the ordered message list
// for one open document plus the send/clear operations over it.
type Conversation interface {
	// SendMessage dispatches one user question. It rejects input that
	// is empty after trimming (domain.ErrInvalidInput), a session not
	// yet AI-ready (domain.ErrNotReady), and a question already in
	// flight (domain.ErrBusy); in every rejection case no dispatch
	// happens and displayed state is untouched. Dispatcher failures
	// are absorbed into a fixed user-visible assistant message and
	// are never returned; durable store write failures propagate.
	SendMessage(ctx context.Context, text string) error

	// ClearConversation resets the local view to the synthesized
	// greeting. Allowed in any state; a question in flight when clear
	// is called completes but its result is discarded on arrival.
	// Durable history is not deleted.
	ClearConversation(ctx context.Context) error

	// Messages returns a snapshot of the ordered local message view.
	Messages() []domain.Message

	// Busy reports whether a question is currently in flight.
	Busy() bool

	// Ready reports whether the readiness gate has opened
	// (first status observed with AIReady true).
	Ready() bool
}

// Uploader runs the upload flow: blob storage, metadata persistence
// and the asynchronous processing trigger.
type Uploader interface {
	// Upload stores the file bytes, persists document metadata and
	// triggers backend processing. It returns once the backend
	// acknowledges the job, not when processing completes.
	Upload(ctx context.Context, fileName string, data []byte) (*domain.DocumentMetadata, error)
}

// Summarizer generates sectioned summaries of AI-ready documents.
type Summarizer interface {
	// Summarize produces a sectioned summary of the document.
	// Fails with domain.ErrNotReady until processing has completed.
	Summarize(ctx context.Context, documentID string) ([]domain.SummarySection, error)
}
