// Package deepread is the client-resident core for the document
// analysis app: upload flow, processing-status synchronization,
// per-document conversations and summary generation, wired over the
// default adapters (SQLite chat store, HTTP backend, SSE push
// channel, TOML config).
package deepread

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/deepread-labs/deepread-core/internal/adapters/driven/auth"
	"github.com/deepread-labs/deepread-core/internal/adapters/driven/backend"
	"github.com/deepread-labs/deepread-core/internal/adapters/driven/blob"
	configfile "github.com/deepread-labs/deepread-core/internal/adapters/driven/config/file"
	"github.com/deepread-labs/deepread-core/internal/adapters/driven/realtime"
	"github.com/deepread-labs/deepread-core/internal/adapters/driven/storage/sqlite"
	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driving"
	"github.com/deepread-labs/deepread-core/internal/core/services"
	"github.com/deepread-labs/deepread-core/internal/logger"
)

// Re-exported domain types so embedders depend on one package.
type (
	// Message is one conversation turn.
	Message = domain.Message

	// ProcessingStatus is the reconciled processing state.
	ProcessingStatus = domain.ProcessingStatus

	// DocumentMetadata describes one uploaded document.
	DocumentMetadata = domain.DocumentMetadata

	// SummarySection is one section of a generated summary.
	SummarySection = domain.SummarySection
)

// Options configures a Client. The zero value uses the TOML config
// under ~/.deepread for everything.
type Options struct {
	// ConfigDir overrides the config directory (default ~/.deepread).
	ConfigDir string

	// DataDir overrides the SQLite data directory
	// (default ~/.deepread/data).
	DataDir string

	// BackendURL overrides the backend base URL from config.
	BackendURL string

	// UserID overrides the stored identity. Useful for tests and
	// single-user installs without a sign-in flow.
	UserID string

	// Verbose enables debug logging.
	Verbose bool
}

// Client is the assembled core. One Client serves one signed-in user
// and any number of sequentially-opened document sessions.
type Client struct {
	config   *configfile.ConfigStore
	store    *sqlite.Store
	identity driven.IdentityProvider
	api      *backend.Client
	channel  driven.StatusChannel
	sync     driving.StatusSynchronizer

	uploader   driving.Uploader
	summarizer driving.Summarizer
}

// New assembles a Client from the default adapters.
func New(ctx context.Context, opts Options) (*Client, error) {
	logger.SetVerbose(opts.Verbose)

	config, err := configfile.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("deepread: open config: %w", err)
	}
	if err := config.Watch(); err != nil {
		logger.Warn("config hot reload unavailable: %v", err)
	}

	baseURL := opts.BackendURL
	if baseURL == "" {
		baseURL = config.GetString("backend.url")
	}
	if baseURL == "" {
		config.Close()
		return nil, fmt.Errorf("deepread: backend URL not configured")
	}

	var identity driven.IdentityProvider
	if opts.UserID != "" {
		identity = auth.NewStaticProvider(opts.UserID)
	} else {
		identity = auth.NewStoredProvider(config)
	}

	tokens := auth.TokenSource(ctx, config)

	timeout := time.Duration(config.GetInt("backend.timeout_seconds")) * time.Second
	api, err := backend.NewClient(backend.Config{
		BaseURL:     baseURL,
		TokenSource: tokens,
		Timeout:     timeout,
	})
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("deepread: %w", err)
	}

	// The push channel is optional: when it cannot be constructed the
	// synchronizer degrades to polling only.
	var channel driven.StatusChannel
	if sse, err := realtime.NewChannel(realtime.Config{
		BaseURL:     baseURL,
		TokenSource: tokens,
	}); err == nil {
		channel = sse
	} else {
		logger.Warn("push channel unavailable, polling only: %v", err)
	}

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("deepread: open store: %w", err)
	}

	blobDir := config.GetString("storage.blob_dir")
	if blobDir == "" && opts.DataDir != "" {
		blobDir = filepath.Join(opts.DataDir, "blobs")
	}
	blobs, err := blob.NewFilesystemStore(blobDir)
	if err != nil {
		store.Close()
		config.Close()
		return nil, fmt.Errorf("deepread: open blob store: %w", err)
	}

	statusSync := services.NewStatusSync(channel, api, store, services.StatusSyncConfig{
		PollInterval:    time.Duration(config.GetInt("sync.poll_interval_seconds")) * time.Second,
		MaxPollDuration: time.Duration(config.GetInt("sync.max_poll_minutes")) * time.Minute,
	})

	return &Client{
		config:     config,
		store:      store,
		identity:   identity,
		api:        api,
		channel:    channel,
		sync:       statusSync,
		uploader:   services.NewUploadService(identity, blobs, store, api),
		summarizer: services.NewSummaryService(api, statusSync),
	}, nil
}

// Upload stores a document and starts its processing job.
func (c *Client) Upload(ctx context.Context, fileName string, data []byte) (*DocumentMetadata, error) {
	return c.uploader.Upload(ctx, fileName, data)
}

// OpenSession opens the conversation and status view for one document.
// The caller owns the returned session and must Close it when the view
// closes or the document changes.
func (c *Client) OpenSession(ctx context.Context, documentID string) (*services.Session, error) {
	conv := services.NewConversationStore(c.store, c.identity, documentID)
	orch := services.NewOrchestrator(conv, c.api, 0)
	sess := services.NewSession(conv, orch, c.sync)

	if err := sess.Start(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// Summarize generates a sectioned summary for an AI-ready document.
func (c *Client) Summarize(ctx context.Context, documentID string) ([]SummarySection, error) {
	return c.summarizer.Summarize(ctx, documentID)
}

// Document returns stored metadata for an uploaded document.
func (c *Client) Document(ctx context.Context, documentID string) (*DocumentMetadata, error) {
	return c.store.GetDocument(ctx, documentID)
}

// Status returns the latest reconciled processing status.
func (c *Client) Status(documentID string) ProcessingStatus {
	return c.sync.Current(documentID)
}

// SignOut ends the identity session.
func (c *Client) SignOut() error {
	return c.identity.SignOut()
}

// Close releases the store and config watcher.
func (c *Client) Close() error {
	err := c.store.Close()
	if cerr := c.config.Close(); err == nil {
		err = cerr
	}
	return err
}
