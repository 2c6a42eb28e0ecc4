package driven

import (
	"context"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

// StatusChannel is a push subscription to status-change events for one
// document. Delivery is best-effort: the channel may never fire, fire
// late, or replay events. The synchronizer must never depend on it for
// terminal detection.
type StatusChannel interface {
	// Subscribe starts delivering status events for the document to
	// onEvent. It returns an unsubscribe function; after that function
	// returns, onEvent is never invoked again.
	Subscribe(ctx context.Context, documentID string, onEvent func(domain.DocumentSnapshot)) (func(), error)
}

// StatusPoller is a point-in-time status fetch for one document.
// Used as the reliable fallback behind the push channel.
type StatusPoller interface {
	// FetchStatus returns the backend's current view of the document.
	FetchStatus(ctx context.Context, documentID string) (*domain.DocumentSnapshot, error)
}
