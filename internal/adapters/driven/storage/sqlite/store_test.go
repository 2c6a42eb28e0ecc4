package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndListMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.InsertMessage(ctx, "doc-1", "user-1", domain.RoleUser, "What is revenue?")
	require.NoError(t, err)
	second, err := store.InsertMessage(ctx, "doc-1", "user-1", domain.RoleAssistant, "<p>10M</p>")
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, domain.StatePersisted, first.State)
	assert.Less(t, first.Seq, second.Seq, "sequence reflects insertion order")

	msgs, err := store.ListMessages(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "What is revenue?", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
}

func TestInsertMessageRequiresUser(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertMessage(context.Background(), "doc-1", "", domain.RoleUser, "q")
	assert.ErrorIs(t, err, domain.ErrSessionInvalid)
}

func TestListMessagesScopedToDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertMessage(ctx, "doc-1", "user-1", domain.RoleUser, "about doc 1")
	require.NoError(t, err)
	_, err = store.InsertMessage(ctx, "doc-2", "user-1", domain.RoleUser, "about doc 2")
	require.NoError(t, err)

	msgs, err := store.ListMessages(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "about doc 1", msgs[0].Content)
}

func TestDeleteMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertMessage(ctx, "doc-1", "user-1", domain.RoleUser, "q")
	require.NoError(t, err)
	_, err = store.InsertMessage(ctx, "doc-2", "user-1", domain.RoleUser, "kept")
	require.NoError(t, err)

	require.NoError(t, store.DeleteMessages(ctx, "doc-1"))

	msgs, err := store.ListMessages(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	other, err := store.ListMessages(ctx, "doc-2")
	require.NoError(t, err)
	assert.Len(t, other, 1, "other documents untouched")
}

func TestSaveAndGetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &domain.DocumentMetadata{
		ID:            "doc-1",
		FileName:      "report.pdf",
		FileSizeBytes: 2048,
		PageCount:     12,
		Language:      "English",
		WordCount:     4800,
		StoragePath:   "user-1/1234_report.pdf",
		UploadedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.FileName, got.FileName)
	assert.Equal(t, doc.PageCount, got.PageCount)
	assert.Equal(t, doc.StoragePath, got.StoragePath)
	assert.True(t, doc.UploadedAt.Equal(got.UploadedAt))
}

func TestGetDocumentNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveDocumentUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &domain.DocumentMetadata{ID: "doc-1", FileName: "v1.pdf", UploadedAt: time.Now()}
	require.NoError(t, store.SaveDocument(ctx, doc))

	doc.FileName = "v2.pdf"
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "v2.pdf", got.FileName)
}

func TestUpdateDocumentProcessingPreservesKnownMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.DocumentMetadata{
		ID:         "doc-1",
		FileName:   "report.pdf",
		PageCount:  12,
		Language:   "English",
		UploadedAt: time.Now(),
	}))

	// A snapshot without metadata must not wipe what we already know.
	require.NoError(t, store.UpdateDocumentProcessing(ctx, "doc-1", domain.DocumentSnapshot{
		Status: domain.ProcessingStatus{TextExtracted: true, CurrentChunk: 2, TotalChunks: 10},
	}))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 12, got.PageCount)
	assert.Equal(t, "English", got.Language)

	// A richer snapshot upgrades the metadata.
	require.NoError(t, store.UpdateDocumentProcessing(ctx, "doc-1", domain.DocumentSnapshot{
		Status:    domain.ProcessingStatus{TextExtracted: true, EmbeddingsBuilt: true, AIReady: true},
		WordCount: 4800,
	}))

	got, err = store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 4800, got.WordCount)
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	_, err = store.InsertMessage(context.Background(), "doc-1", "user-1", domain.RoleUser, "q")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening replays nothing and keeps existing data.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.ListMessages(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
