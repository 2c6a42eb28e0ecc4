package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
)

// greetingText is the synthesized opening message shown when a
// document has no conversation history yet. It is client-manufactured
// and never persisted; the UI must never render a blank conversation.
const greetingText = "Hello! I'm ready to answer questions based on your document. Ask me anything from the PDF."

// greetingID is the fixed placeholder id of the synthesized greeting.
const greetingID = "greeting"

// ConversationStore owns the ordered message list for one document.
// It is the sole writer of that list: the durable store is written
// through before any turn is considered authoritative, and observers
// only ever read snapshots. Pending placeholders are replaced
// wholesale by their persisted counterparts, never patched.
type ConversationStore struct {
	store      driven.ChatStore
	identity   driven.IdentityProvider
	documentID string

	mu       sync.Mutex
	messages []domain.Message
	onChange func()
}

// NewConversationStore creates the message list owner for a document.
func NewConversationStore(store driven.ChatStore, identity driven.IdentityProvider, documentID string) *ConversationStore {
	return &ConversationStore{
		store:      store,
		identity:   identity,
		documentID: documentID,
	}
}

// DocumentID returns the bound document id.
func (c *ConversationStore) DocumentID() string {
	return c.documentID
}

// SetOnChange registers a callback invoked after every local view
// mutation. Intended for UI observers; must not call back into the store.
func (c *ConversationStore) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Load populates the local view from durable history. Empty history
// yields the synthesized greeting instead of an empty list.
func (c *ConversationStore) Load(ctx context.Context) error {
	if c.userID() == "" {
		return fmt.Errorf("load conversation: %w", domain.ErrSessionInvalid)
	}

	history, err := c.store.ListMessages(ctx, c.documentID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	// Creation time ascending; same-timestamp ties fall back to the
	// store's insertion sequence, never to id order.
	sort.SliceStable(history, func(i, j int) bool {
		if !history[i].CreatedAt.Equal(history[j].CreatedAt) {
			return history[i].CreatedAt.Before(history[j].CreatedAt)
		}
		return history[i].Seq < history[j].Seq
	})

	c.mu.Lock()
	if len(history) == 0 {
		c.messages = []domain.Message{c.greeting()}
	} else {
		c.messages = history
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// Messages returns a read-only snapshot of the local view.
func (c *ConversationStore) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]domain.Message, len(c.messages))
	copy(snapshot, c.messages)
	return snapshot
}

// Append persists one turn, then appends the persisted record to the
// local view. It does not return before durable confirmation: losing
// a user's question or an AI answer is a correctness violation, not a
// UX nuisance.
func (c *ConversationStore) Append(ctx context.Context, role domain.Role, content string) (*domain.Message, error) {
	persisted, err := c.persist(ctx, role, content)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.messages = append(c.messages, *persisted)
	c.mu.Unlock()

	c.notify()
	return persisted, nil
}

// AppendPending adds a locally-synthesized placeholder turn for
// optimistic display and returns it. The placeholder carries a
// client-generated id until Promote or ReplaceWithPersisted swaps in
// the durable record.
func (c *ConversationStore) AppendPending(role domain.Role, content string) domain.Message {
	msg := domain.Message{
		ID:         uuid.NewString(),
		DocumentID: c.documentID,
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now(),
		State:      domain.StatePending,
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.notify()
	return msg
}

// Promote persists the placeholder's content and replaces the
// placeholder with the durable record, in place. The placeholder is
// left untouched if persistence fails.
func (c *ConversationStore) Promote(ctx context.Context, placeholderID string) (*domain.Message, error) {
	pending, ok := c.find(placeholderID)
	if !ok {
		return nil, fmt.Errorf("promote message: %w", domain.ErrNotFound)
	}

	persisted, err := c.persist(ctx, pending.Role, pending.Content)
	if err != nil {
		return nil, err
	}

	c.swap(placeholderID, *persisted)
	return persisted, nil
}

// ReplaceWithPersisted persists a new turn and swaps it into the
// placeholder's position. Used when the real assistant answer (or the
// apology notice) supersedes the transient analyzing placeholder.
func (c *ConversationStore) ReplaceWithPersisted(ctx context.Context, placeholderID string, role domain.Role, content string) (*domain.Message, error) {
	persisted, err := c.persist(ctx, role, content)
	if err != nil {
		return nil, err
	}

	c.swap(placeholderID, *persisted)
	return persisted, nil
}

// Remove drops a placeholder from the local view, e.g. after its
// persistence failed and the failure is being propagated instead.
func (c *ConversationStore) Remove(placeholderID string) {
	c.mu.Lock()
	for i, m := range c.messages {
		if m.ID == placeholderID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.notify()
}

// Clear resets the local view to the synthesized greeting. Durable
// history is deliberately untouched: the default clear must be
// non-destructive so a fresh session still loads prior turns.
func (c *ConversationStore) Clear(_ context.Context) error {
	c.mu.Lock()
	c.messages = []domain.Message{c.greeting()}
	c.mu.Unlock()

	c.notify()
	return nil
}

// ClearHard deletes durable history for the document, then resets the
// local view. The explicit opt-in variant of Clear.
func (c *ConversationStore) ClearHard(ctx context.Context) error {
	if err := c.store.DeleteMessages(ctx, c.documentID); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return c.Clear(ctx)
}

func (c *ConversationStore) persist(ctx context.Context, role domain.Role, content string) (*domain.Message, error) {
	userID := c.userID()
	if userID == "" {
		return nil, fmt.Errorf("persist message: %w", domain.ErrSessionInvalid)
	}

	persisted, err := c.store.InsertMessage(ctx, c.documentID, userID, role, content)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	return persisted, nil
}

func (c *ConversationStore) find(id string) (domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Message{}, false
}

func (c *ConversationStore) swap(placeholderID string, persisted domain.Message) {
	c.mu.Lock()
	for i, m := range c.messages {
		if m.ID == placeholderID {
			c.messages[i] = persisted
			break
		}
	}
	c.mu.Unlock()

	c.notify()
}

func (c *ConversationStore) greeting() domain.Message {
	return domain.Message{
		ID:         greetingID,
		DocumentID: c.documentID,
		Role:       domain.RoleAssistant,
		Content:    greetingText,
		CreatedAt:  time.Now(),
		State:      domain.StatePending,
	}
}

func (c *ConversationStore) userID() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.CurrentUserID()
}

func (c *ConversationStore) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
