package driving

import (
	"context"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

// StatusSynchronizer produces one authoritative, monotonic processing
// status for a document, reconciling a best-effort push channel with a
// polling fallback of independent latency and reliability.
type StatusSynchronizer interface {
	// Subscribe begins both the push subscription and the polling loop
	// for the document and delivers every reconciled status change to
	// onUpdate. The returned unsubscribe function tears both down;
	// after it returns, onUpdate is never invoked again.
	Subscribe(ctx context.Context, documentID string, onUpdate func(domain.ProcessingStatus)) (func(), error)

	// Current returns the latest reconciled status for the document.
	Current(documentID string) domain.ProcessingStatus
}
