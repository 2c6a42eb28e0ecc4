// Package backend provides the HTTP client for the document analysis
// backend: question answering, processing triggers, status polling and
// summary generation.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
)

// Ensure Client implements both backend-facing ports.
var (
	_ driven.AnswerService = (*Client)(nil)
	_ driven.StatusPoller  = (*Client)(nil)
)

// Default configuration values.
const (
	DefaultTimeout = 120 * time.Second

	// DefaultRequestsPerSecond bounds outbound request rate. The
	// backend throttles aggressively; staying under its limit avoids
	// retry storms during polling.
	DefaultRequestsPerSecond = 10
)

// Config holds configuration for the backend client.
type Config struct {
	// BaseURL is the backend API base URL (required).
	BaseURL string

	// TokenSource supplies bearer tokens for authenticated requests.
	// Nil means unauthenticated requests.
	TokenSource oauth2.TokenSource

	// Timeout is the per-request timeout (default: 120s).
	Timeout time.Duration

	// RequestsPerSecond is the outbound rate limit (default: 10).
	RequestsPerSecond float64
}

// Client calls the backend HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
	tokens  oauth2.TokenSource
	limiter *rate.Limiter
}

// askRequest is the /ask-question request format.
type askRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
}

// askResponse is the /ask-question response format. The backend
// reports page as a JSON number or a string label, so it is decoded
// loosely and normalized afterwards.
type askResponse struct {
	Answer  string `json:"answer"`
	Sources []struct {
		Page    any    `json:"page"`
		Excerpt string `json:"excerpt"`
	} `json:"sources"`
}

// statusResponse is the /processing-status response format.
type statusResponse struct {
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

// summaryResponse is the /generate-summary response format.
type summaryResponse struct {
	Sections []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Icon    string `json:"icon,omitempty"`
	} `json:"sections"`
}

// errorResponse is the backend's error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates a backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		tokens:  cfg.TokenSource,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)),
	}, nil
}

// Ask sends a question about a document and returns the raw answer
// with its citations.
func (c *Client) Ask(ctx context.Context, documentID, question string) (*domain.Answer, error) {
	const op = "ask question"

	body, err := json.Marshal(askRequest{DocumentID: documentID, Question: question})
	if err != nil {
		return nil, fmt.Errorf("backend: marshal request: %w", err)
	}

	var resp askResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/ask-question", "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	answer := &domain.Answer{Text: resp.Answer}
	for _, src := range resp.Sources {
		answer.Sources = append(answer.Sources, domain.Source{
			Page:    pageRef(src.Page),
			Excerpt: src.Excerpt,
		})
	}
	return answer, nil
}

// pageRef normalizes a loosely-typed page reference to its display
// string. Whole numbers render without a fraction part.
func pageRef(v any) string {
	switch p := v.(type) {
	case string:
		return p
	case float64:
		if p == math.Trunc(p) {
			return strconv.FormatInt(int64(p), 10)
		}
		return strconv.FormatFloat(p, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", p)
	}
}

// FetchStatus retrieves the current processing status snapshot.
func (c *Client) FetchStatus(ctx context.Context, documentID string) (*domain.DocumentSnapshot, error) {
	const op = "fetch status"

	path := "/processing-status/" + url.PathEscape(documentID)

	var resp statusResponse
	if err := c.doJSON(ctx, op, http.MethodGet, path, "", http.NoBody, &resp); err != nil {
		return nil, err
	}

	return &domain.DocumentSnapshot{
		Status: domain.ProcessingStatus{
			TextExtracted:   resp.TextExtracted,
			EmbeddingsBuilt: resp.EmbeddingsBuilt,
			AIReady:         resp.AIReady,
			CurrentChunk:    resp.CurrentChunk,
			TotalChunks:     resp.TotalChunks,
			Error:           resp.Error,
		},
		PageCount: resp.PageCount,
		Language:  resp.Language,
		WordCount: resp.WordCount,
	}, nil
}

// TriggerProcessing uploads the document bytes and starts the
// asynchronous processing job. The returned snapshot is the backend's
// initial view of the job.
func (c *Client) TriggerProcessing(ctx context.Context, documentID, fileName string, data []byte) (*domain.DocumentSnapshot, error) {
	const op = "trigger processing"

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("document_id", documentID); err != nil {
		return nil, fmt.Errorf("backend: build form: %w", err)
	}
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("backend: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("backend: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("backend: build form: %w", err)
	}

	var resp statusResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/upload-pdf", form.FormDataContentType(), &buf, &resp); err != nil {
		return nil, err
	}

	return &domain.DocumentSnapshot{
		Status: domain.ProcessingStatus{
			TextExtracted: resp.TextExtracted,
			CurrentChunk:  resp.CurrentChunk,
			TotalChunks:   resp.TotalChunks,
			Error:         resp.Error,
		},
		PageCount: resp.PageCount,
		Language:  resp.Language,
		WordCount: resp.WordCount,
	}, nil
}

// GenerateSummary requests a sectioned summary for a processed
// document.
func (c *Client) GenerateSummary(ctx context.Context, documentID string) ([]domain.SummarySection, error) {
	const op = "generate summary"

	body, err := json.Marshal(map[string]string{"document_id": documentID})
	if err != nil {
		return nil, fmt.Errorf("backend: marshal request: %w", err)
	}

	var resp summaryResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/generate-summary", "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	sections := make([]domain.SummarySection, 0, len(resp.Sections))
	for _, s := range resp.Sections {
		sections = append(sections, domain.SummarySection{
			Title:   s.Title,
			Content: s.Content,
			Icon:    s.Icon,
		})
	}
	return sections, nil
}

// doJSON performs one rate-limited, authenticated request and decodes
// the JSON response. Failures are classified into the domain error
// taxonomy so callers can branch on kind, not on strings.
func (c *Client) doJSON(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return classify(op, c.client.Timeout, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("backend: obtain token: %w", err)
		}
		token.SetAuthHeader(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classify(op, c.client.Timeout, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		var envelope errorResponse
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != "" {
			message = envelope.Error
		}
		return &domain.ServiceError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

// classify maps transport-level failures onto the domain taxonomy.
func classify(op string, timeout time.Duration, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &domain.TimeoutError{Op: op, Timeout: timeout}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Op: op, Timeout: timeout}
	}
	return &domain.NetworkError{Op: op, Err: err}
}
