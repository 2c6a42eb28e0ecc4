package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driving"
	"github.com/deepread-labs/deepread-core/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Conversation = (*Orchestrator)(nil)

// User-visible fixed strings for the send pipeline.
const (
	// analyzingText is the transient placeholder shown while a
	// question is in flight.
	analyzingText = "Analyzing document..."

	// apologyText replaces the placeholder when the dispatcher fails.
	// Raw errors are never shown to the user.
	apologyText = "Sorry, I encountered an error processing your question. Please try again."
)

// DefaultAskTimeout bounds one question round-trip.
const DefaultAskTimeout = 30 * time.Second

// Orchestrator sequences the conversation state machine for one
// session: Idle -> AwaitingAnswer -> Idle, with a parallel readiness
// gate that stays closed until the document's processing job reports
// AI-ready. At most one question may be outstanding per session;
// concurrent sends are rejected, not queued.
type Orchestrator struct {
	conv       *ConversationStore
	answers    driven.AnswerService
	askTimeout time.Duration

	mu         sync.Mutex
	busy       bool
	ready      bool
	fatal      error
	generation uint64
}

// NewOrchestrator creates the coordinator a chat page binds to.
// askTimeout <= 0 selects DefaultAskTimeout.
func NewOrchestrator(conv *ConversationStore, answers driven.AnswerService, askTimeout time.Duration) *Orchestrator {
	if askTimeout <= 0 {
		askTimeout = DefaultAskTimeout
	}
	return &Orchestrator{
		conv:       conv,
		answers:    answers,
		askTimeout: askTimeout,
	}
}

// HandleStatus feeds reconciled processing status into the readiness
// gate. The gate opens exactly once, on the first AI-ready status; a
// terminal job error closes it permanently and surfaces as a fatal,
// non-retryable state.
func (o *Orchestrator) HandleStatus(status domain.ProcessingStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if status.Error != "" {
		o.ready = false
		o.fatal = &domain.TerminalProcessingError{
			DocumentID: o.conv.DocumentID(),
			Reason:     status.Error,
		}
		return
	}
	if status.AIReady && !o.ready {
		o.ready = true
		logger.Info("document %s unblocked for questions", o.conv.DocumentID())
	}
}

// Ready reports whether the readiness gate has opened.
func (o *Orchestrator) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready
}

// Busy reports whether a question is currently in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Fatal returns the terminal processing failure, if one was observed.
func (o *Orchestrator) Fatal() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fatal
}

// Messages returns a snapshot of the ordered local message view.
func (o *Orchestrator) Messages() []domain.Message {
	return o.conv.Messages()
}

// SendMessage runs one question round-trip:
//
//  1. optimistic user turn in the local view
//  2. durable persistence of the user turn (failures propagate)
//  3. transient analyzing placeholder, session becomes busy
//  4. dispatch to the AI backend under the ask timeout
//  5. success: formatted answer persisted, replacing the placeholder
//  6. dispatcher failure: fixed apology persisted instead, error absorbed
//  7. busy cleared in every outcome
//
// Empty input, a closed readiness gate and an in-flight question are
// rejected before anything is displayed or dispatched.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("send message: %w", domain.ErrInvalidInput)
	}

	o.mu.Lock()
	if o.fatal != nil {
		err := o.fatal
		o.mu.Unlock()
		return fmt.Errorf("send message: %w", err)
	}
	if !o.ready {
		o.mu.Unlock()
		return fmt.Errorf("send message: %w", domain.ErrNotReady)
	}
	if o.busy {
		o.mu.Unlock()
		return fmt.Errorf("send message: %w", domain.ErrBusy)
	}
	o.busy = true
	gen := o.generation
	o.mu.Unlock()

	defer o.settle(gen)

	// Optimistic display, then write-through. A store failure here
	// must propagate: silently losing the question would corrupt the
	// conversation record.
	pendingUser := o.conv.AppendPending(domain.RoleUser, text)
	if _, err := o.conv.Promote(ctx, pendingUser.ID); err != nil {
		o.conv.Remove(pendingUser.ID)
		return err
	}

	placeholder := o.conv.AppendPending(domain.RoleAssistant, analyzingText)

	askCtx, cancel := context.WithTimeout(ctx, o.askTimeout)
	answer, askErr := o.answers.Ask(askCtx, o.conv.DocumentID(), text)
	cancel()

	// A clear (or teardown) while the question was in flight
	// invalidates the result: discard it on arrival.
	if o.stale(gen) {
		logger.Debug("discarding stale answer for document %s", o.conv.DocumentID())
		return nil
	}

	if askErr != nil {
		logger.Warn("question dispatch failed: %v", askErr)
		if _, err := o.conv.ReplaceWithPersisted(ctx, placeholder.ID, domain.RoleAssistant, apologyText); err != nil {
			o.conv.Remove(placeholder.ID)
			return err
		}
		return nil
	}

	formatted := FormatAnswer(answer.Text, answer.Sources)
	if _, err := o.conv.ReplaceWithPersisted(ctx, placeholder.ID, domain.RoleAssistant, formatted); err != nil {
		o.conv.Remove(placeholder.ID)
		return err
	}
	return nil
}

// ClearConversation resets the local view to the greeting. Allowed in
// any state: bumping the generation lets an in-flight question finish
// while its result is discarded on arrival.
func (o *Orchestrator) ClearConversation(ctx context.Context) error {
	o.invalidate()
	return o.conv.Clear(ctx)
}

// invalidate bumps the generation counter so in-flight completions
// are dropped, and releases the busy flag they held.
func (o *Orchestrator) invalidate() {
	o.mu.Lock()
	o.generation++
	o.busy = false
	o.mu.Unlock()
}

// settle clears the busy flag, unless a clear already invalidated
// this send's generation (and released the flag with it).
func (o *Orchestrator) settle(gen uint64) {
	o.mu.Lock()
	if o.generation == gen {
		o.busy = false
	}
	o.mu.Unlock()
}

func (o *Orchestrator) stale(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation != gen
}
