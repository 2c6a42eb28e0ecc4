package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driving"
	"github.com/deepread-labs/deepread-core/internal/logger"
)

// Session binds one open document view to its conversation and status
// state. One session is live per open document view; it is destroyed
// when the view closes or the document changes. Teardown unsubscribes
// both status feeds and invalidates in-flight completions so late
// callbacks are dropped.
type Session struct {
	conv *ConversationStore
	orch *Orchestrator
	sync driving.StatusSynchronizer

	mu          sync.Mutex
	unsubscribe func()
	closed      bool
}

// NewSession assembles a session over an already-constructed
// conversation store and orchestrator.
func NewSession(conv *ConversationStore, orch *Orchestrator, statusSync driving.StatusSynchronizer) *Session {
	return &Session{
		conv: conv,
		orch: orch,
		sync: statusSync,
	}
}

// Conversation returns the driving surface a chat page binds to.
func (s *Session) Conversation() driving.Conversation {
	return s.orch
}

// DocumentID returns the bound document id.
func (s *Session) DocumentID() string {
	return s.conv.DocumentID()
}

// Status returns the latest reconciled processing status.
func (s *Session) Status() domain.ProcessingStatus {
	return s.sync.Current(s.conv.DocumentID())
}

// Start loads durable history and begins status reconciliation,
// wiring reconciled updates into the orchestrator's readiness gate.
func (s *Session) Start(ctx context.Context) error {
	if err := s.conv.Load(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	unsub, err := s.sync.Subscribe(ctx, s.conv.DocumentID(), s.orch.HandleStatus)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()

	logger.Debug("session started for document %s", s.conv.DocumentID())
	return nil
}

// Close tears the session down: both status feeds stop, and any
// in-flight answer is invalidated so its late arrival is discarded.
// Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsub := s.unsubscribe
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.orch.invalidate()

	logger.Debug("session closed for document %s", s.conv.DocumentID())
	return nil
}
