package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockIdentity implements driven.IdentityProvider.
type mockIdentity struct {
	userID    string
	signedOut bool
}

func (m *mockIdentity) CurrentUserID() string { return m.userID }

func (m *mockIdentity) SignOut() error {
	m.signedOut = true
	m.userID = ""
	return nil
}

// mockChatStore implements driven.ChatStore in memory.
type mockChatStore struct {
	mu        sync.Mutex
	messages  map[string][]domain.Message
	documents map[string]*domain.DocumentMetadata
	snapshots map[string]domain.DocumentSnapshot
	seq       int64

	insertErr error
	listErr   error
	deleteErr error
	saveErr   error

	// clock lets tests force identical timestamps to exercise
	// the insertion-sequence tie-break.
	clock func() time.Time
}

var _ driven.ChatStore = (*mockChatStore)(nil)

func newMockChatStore() *mockChatStore {
	return &mockChatStore{
		messages:  make(map[string][]domain.Message),
		documents: make(map[string]*domain.DocumentMetadata),
		snapshots: make(map[string]domain.DocumentSnapshot),
		clock:     time.Now,
	}
}

func (m *mockChatStore) InsertMessage(_ context.Context, documentID, userID string, role domain.Role, content string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if userID == "" {
		return nil, domain.ErrSessionInvalid
	}
	m.seq++
	msg := domain.Message{
		ID:         fmt.Sprintf("msg-%d", m.seq),
		DocumentID: documentID,
		Role:       role,
		Content:    content,
		CreatedAt:  m.clock(),
		Seq:        m.seq,
		State:      domain.StatePersisted,
	}
	m.messages[documentID] = append(m.messages[documentID], msg)
	return &msg, nil
}

func (m *mockChatStore) ListMessages(_ context.Context, documentID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Message, len(m.messages[documentID]))
	copy(out, m.messages[documentID])
	return out, nil
}

func (m *mockChatStore) DeleteMessages(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.messages, documentID)
	return nil
}

func (m *mockChatStore) SaveDocument(_ context.Context, doc *domain.DocumentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	docCopy := *doc
	m.documents[doc.ID] = &docCopy
	return nil
}

func (m *mockChatStore) GetDocument(_ context.Context, documentID string) (*domain.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	docCopy := *doc
	return &docCopy, nil
}

func (m *mockChatStore) UpdateDocumentProcessing(_ context.Context, documentID string, snap domain.DocumentSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[documentID] = snap
	return nil
}

func (m *mockChatStore) messageCount(documentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[documentID])
}

// mockAnswerService implements driven.AnswerService.
type mockAnswerService struct {
	mu         sync.Mutex
	askCalls   int
	askFunc    func(ctx context.Context, documentID, question string) (*domain.Answer, error)
	triggered  []string
	processErr error
	snapshot   domain.DocumentSnapshot
	sections   []domain.SummarySection
	summaryErr error
}

var _ driven.AnswerService = (*mockAnswerService)(nil)

func (m *mockAnswerService) Ask(ctx context.Context, documentID, question string) (*domain.Answer, error) {
	m.mu.Lock()
	m.askCalls++
	fn := m.askFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, documentID, question)
	}
	return &domain.Answer{Text: "The answer."}, nil
}

func (m *mockAnswerService) TriggerProcessing(_ context.Context, documentID, _ string, _ []byte) (*domain.DocumentSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processErr != nil {
		return nil, m.processErr
	}
	m.triggered = append(m.triggered, documentID)
	snap := m.snapshot
	return &snap, nil
}

func (m *mockAnswerService) GenerateSummary(_ context.Context, _ string) ([]domain.SummarySection, error) {
	if m.summaryErr != nil {
		return nil, m.summaryErr
	}
	return m.sections, nil
}

func (m *mockAnswerService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.askCalls
}

// mockPoller implements driven.StatusPoller.
type mockPoller struct {
	mu        sync.Mutex
	fetchFunc func(ctx context.Context, documentID string) (*domain.DocumentSnapshot, error)
	fetches   int
}

var _ driven.StatusPoller = (*mockPoller)(nil)

func (m *mockPoller) FetchStatus(ctx context.Context, documentID string) (*domain.DocumentSnapshot, error) {
	m.mu.Lock()
	m.fetches++
	fn := m.fetchFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, documentID)
	}
	return &domain.DocumentSnapshot{}, nil
}

func (m *mockPoller) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// mockChannel implements driven.StatusChannel and lets tests push
// events by hand.
type mockChannel struct {
	mu           sync.Mutex
	onEvent      func(domain.DocumentSnapshot)
	subscribeErr error
	unsubscribed bool
}

var _ driven.StatusChannel = (*mockChannel)(nil)

func (m *mockChannel) Subscribe(_ context.Context, _ string, onEvent func(domain.DocumentSnapshot)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	m.onEvent = onEvent
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubscribed = true
		m.onEvent = nil
	}, nil
}

func (m *mockChannel) push(snap domain.DocumentSnapshot) {
	m.mu.Lock()
	fn := m.onEvent
	m.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// mockBlobStore implements driven.BlobStore.
type mockBlobStore struct {
	mu       sync.Mutex
	stored   map[string][]byte
	storeErr error
}

var _ driven.BlobStore = (*mockBlobStore)(nil)

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{stored: make(map[string][]byte)}
}

func (m *mockBlobStore) Store(_ context.Context, path string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return "", m.storeErr
	}
	m.stored[path] = data
	return path, nil
}
