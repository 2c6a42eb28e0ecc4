// Package realtime provides the push status channel as a server-sent
// events client. Status updates are best-effort: the synchronizer's
// poller remains the source of truth when the stream drops.
package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
	"github.com/deepread-labs/deepread-core/internal/logger"
)

// Ensure Channel implements the interface.
var _ driven.StatusChannel = (*Channel)(nil)

// Default configuration values.
const (
	DefaultReconnectDelay    = 2 * time.Second
	DefaultMaxReconnectDelay = 30 * time.Second
)

// Config holds configuration for the SSE status channel.
type Config struct {
	// BaseURL is the backend API base URL (required).
	BaseURL string

	// TokenSource supplies bearer tokens for the stream request.
	// Nil means unauthenticated.
	TokenSource oauth2.TokenSource

	// ReconnectDelay is the initial delay before reconnecting a
	// dropped stream (default: 2s). Doubles up to MaxReconnectDelay.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the reconnect backoff (default: 30s).
	MaxReconnectDelay time.Duration
}

// Channel subscribes to per-document status streams over SSE.
type Channel struct {
	client       *http.Client
	baseURL      string
	tokens       oauth2.TokenSource
	initialDelay time.Duration
	maxDelay     time.Duration
}

// statusEvent is the wire format of one stream event.
type statusEvent struct {
	TextExtracted   bool   `json:"text_extracted"`
	EmbeddingsBuilt bool   `json:"embeddings_built"`
	AIReady         bool   `json:"ai_ready"`
	CurrentChunk    int    `json:"current_chunk"`
	TotalChunks     int    `json:"total_chunks"`
	Error           string `json:"error,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	Language        string `json:"language,omitempty"`
	WordCount       int    `json:"word_count,omitempty"`
}

// NewChannel creates an SSE status channel.
func NewChannel(cfg Config) (*Channel, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("realtime: base URL is required")
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnectDelay == 0 {
		cfg.MaxReconnectDelay = DefaultMaxReconnectDelay
	}

	return &Channel{
		// No overall timeout: the stream is long-lived by design.
		client:       &http.Client{},
		baseURL:      cfg.BaseURL,
		tokens:       cfg.TokenSource,
		initialDelay: cfg.ReconnectDelay,
		maxDelay:     cfg.MaxReconnectDelay,
	}, nil
}

// Subscribe opens the status stream for one document. The first
// connection is attempted synchronously so callers can degrade to
// polling when the stream is unavailable; later drops reconnect in the
// background. The returned function tears the stream down and
// guarantees no further onEvent calls once it returns.
func (c *Channel) Subscribe(ctx context.Context, documentID string, onEvent func(domain.DocumentSnapshot)) (func(), error) {
	if documentID == "" {
		return nil, fmt.Errorf("realtime: %w: document id is empty", domain.ErrInvalidInput)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	resp, err := c.connect(streamCtx, documentID)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &subscription{
		channel:    c,
		documentID: documentID,
		onEvent:    onEvent,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go sub.run(streamCtx, resp)

	return sub.unsubscribe, nil
}

// connect opens one stream request.
func (c *Channel) connect(ctx context.Context, documentID string) (*http.Response, error) {
	path := "/status-stream/" + url.PathEscape(documentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("realtime: create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("realtime: obtain token: %w", err)
		}
		token.SetAuthHeader(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: "open status stream", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &domain.ServiceError{
			Op:         "open status stream",
			StatusCode: resp.StatusCode,
		}
	}
	return resp, nil
}

// subscription is one live stream with reconnection.
type subscription struct {
	channel    *Channel
	documentID string
	onEvent    func(domain.DocumentSnapshot)

	mu     sync.Mutex
	closed bool

	cancel func()
	done   chan struct{}
}

// run consumes the stream, reconnecting with backoff until cancelled.
func (s *subscription) run(ctx context.Context, resp *http.Response) {
	defer close(s.done)

	delay := s.channel.initialDelay
	for {
		if resp != nil {
			s.consume(resp)
			resp = nil
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		next, err := s.channel.connect(ctx, s.documentID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Debug("status stream reconnect failed for %s: %v", s.documentID, err)
			delay = min(delay*2, s.channel.maxDelay)
			continue
		}
		delay = s.channel.initialDelay
		resp = next
	}
}

// consume reads events until the stream ends.
func (s *subscription) consume(resp *http.Response) {
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		// A blank line terminates one event.
		if line == "" {
			if data.Len() > 0 {
				s.dispatch(data.String())
				data.Reset()
			}
			continue
		}
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(value, " "))
		}
		// id: and event: fields are not used by this stream.
	}
	if data.Len() > 0 {
		s.dispatch(data.String())
	}
}

// dispatch decodes one event payload and delivers it. Delivery holds
// the subscription lock so no event can arrive after unsubscribe
// returns.
func (s *subscription) dispatch(payload string) {
	var event statusEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Debug("dropping malformed status event for %s: %v", s.documentID, err)
		return
	}

	snap := domain.DocumentSnapshot{
		Status: domain.ProcessingStatus{
			TextExtracted:   event.TextExtracted,
			EmbeddingsBuilt: event.EmbeddingsBuilt,
			AIReady:         event.AIReady,
			CurrentChunk:    event.CurrentChunk,
			TotalChunks:     event.TotalChunks,
			Error:           event.Error,
		},
		PageCount: event.PageCount,
		Language:  event.Language,
		WordCount: event.WordCount,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.onEvent == nil {
		return
	}
	s.onEvent(snap)
}

// unsubscribe tears the stream down. Idempotent.
func (s *subscription) unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
}
