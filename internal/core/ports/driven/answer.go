package driven

import (
	"context"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

// AnswerService is the AI backend. It is stateless from the core's
// perspective: no call depends on prior questions beyond what the
// document id implies server-side.
//
// Implementations classify failures into the domain taxonomy:
// *domain.NetworkError for transport failures, *domain.ServiceError
// for non-success responses, *domain.TimeoutError when no response
// arrives within the bounded interval. They never retry; retry policy
// belongs to the orchestrator, since retrying a question may duplicate
// billed AI calls.
type AnswerService interface {
	// Ask sends one question about a document and returns the raw
	// answer plus source citations.
	Ask(ctx context.Context, documentID, question string) (*domain.Answer, error)

	// TriggerProcessing submits uploaded file bytes to start the
	// asynchronous processing job. Fire-and-forget from the core's
	// perspective: it returns on acknowledgement, not completion.
	// The returned snapshot carries whatever metadata the backend
	// determined synchronously (page count, language).
	TriggerProcessing(ctx context.Context, documentID, fileName string, data []byte) (*domain.DocumentSnapshot, error)

	// GenerateSummary produces a sectioned summary of an AI-ready document.
	GenerateSummary(ctx context.Context, documentID string) ([]domain.SummarySection, error)
}

// BlobStore is upload-time blob storage. Used only to obtain a stable
// storage reference before notifying the AI backend.
type BlobStore interface {
	// Store writes bytes at the given path and returns the stable path.
	Store(ctx context.Context, path string, data []byte) (string, error)
}
