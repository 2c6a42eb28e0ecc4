package deepread

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

// fakeBackend serves the minimal API surface the client needs.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-pdf", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"page_count": 12,
			"language":   "English",
		})
	})
	mux.HandleFunc("GET /processing-status/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"text_extracted":   true,
			"embeddings_built": true,
			"ai_ready":         true,
		})
	})
	mux.HandleFunc("POST /ask-question", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"answer": "**Revenue** grew 10%.",
			"sources": []map[string]string{
				{"page": "3", "excerpt": "Revenue grew 10% YoY"},
			},
		})
	})
	mux.HandleFunc("POST /generate-summary", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"sections": []map[string]string{
				{"title": "Overview", "content": "A quarterly report."},
			},
		})
	})
	// No /status-stream handler: the push channel degrades to polling.

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := fakeBackend(t)

	client, err := New(context.Background(), Options{
		ConfigDir:  t.TempDir(),
		DataDir:    t.TempDir(),
		BackendURL: srv.URL,
		UserID:     "user-1",
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewRequiresBackendURL(t *testing.T) {
	_, err := New(context.Background(), Options{
		ConfigDir: t.TempDir(),
		DataDir:   t.TempDir(),
	})
	require.Error(t, err)
}

func TestUploadAskAndSummarize(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	meta, err := client.Upload(ctx, "report.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, 12, meta.PageCount)

	stored, err := client.Document(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", stored.FileName)

	sess, err := client.OpenSession(ctx, meta.ID)
	require.NoError(t, err)
	defer sess.Close()

	// The first poll happens immediately, so readiness arrives without
	// waiting out the poll interval.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !sess.Conversation().Ready() {
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, sess.Conversation().Ready(), "session should become ready via polling")
	assert.True(t, client.Status(meta.ID).AIReady)

	require.NoError(t, sess.Conversation().SendMessage(ctx, "What is revenue?"))

	msgs := sess.Conversation().Messages()
	require.Len(t, msgs, 3) // greeting, question, answer
	assert.True(t, strings.Contains(msgs[2].Content, "<strong>Revenue</strong>"))
	assert.True(t, strings.Contains(msgs[2].Content, "Page 3"))

	sections, err := client.Summarize(ctx, meta.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Overview", sections[0].Title)
}

func TestSessionHistorySurvivesReopen(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	meta, err := client.Upload(ctx, "report.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	sess, err := client.OpenSession(ctx, meta.ID)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !sess.Conversation().Ready() {
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, sess.Conversation().Ready())
	require.NoError(t, sess.Conversation().SendMessage(ctx, "What is revenue?"))
	require.NoError(t, sess.Close())

	reopened, err := client.OpenSession(ctx, meta.ID)
	require.NoError(t, err)
	defer reopened.Close()

	msgs := reopened.Conversation().Messages()
	require.Len(t, msgs, 2, "durable turns reload, greeting is not re-synthesized")
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is revenue?", msgs[0].Content)
}

func TestSignOutBlocksNewWork(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SignOut())

	_, err := client.Upload(ctx, "report.pdf", []byte("%PDF-1.7"))
	assert.ErrorIs(t, err, domain.ErrSessionInvalid)

	_, err = client.OpenSession(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrSessionInvalid)
}
