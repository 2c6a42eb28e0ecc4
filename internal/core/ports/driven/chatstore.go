package driven

import (
	"context"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

// ChatStore is the durable store for conversation turns and document
// metadata. All message access is append-only or read-only; no message
// is ever mutated in place.
type ChatStore interface {
	// InsertMessage persists one conversation turn for the given user
	// and returns the persisted record with its store-assigned id,
	// timestamp and insertion sequence. It must not return before
	// durable confirmation.
	InsertMessage(ctx context.Context, documentID, userID string, role domain.Role, content string) (*domain.Message, error)

	// ListMessages returns all turns for a document ordered by
	// creation time ascending, ties broken by insertion sequence.
	ListMessages(ctx context.Context, documentID string) ([]domain.Message, error)

	// DeleteMessages removes all turns for a document. Only used by
	// the explicit hard-delete clear variant.
	DeleteMessages(ctx context.Context, documentID string) error

	// SaveDocument stores document metadata on upload acknowledgement.
	SaveDocument(ctx context.Context, doc *domain.DocumentMetadata) error

	// GetDocument retrieves document metadata by id.
	// Returns domain.ErrNotFound if the document does not exist.
	GetDocument(ctx context.Context, documentID string) (*domain.DocumentMetadata, error)

	// UpdateDocumentProcessing records the latest processing snapshot
	// for a document, filling in page count, language and word count
	// once the job reports them.
	UpdateDocumentProcessing(ctx context.Context, documentID string, snap domain.DocumentSnapshot) error
}
