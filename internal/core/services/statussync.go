package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driving"
	"github.com/deepread-labs/deepread-core/internal/logger"
)

// Ensure StatusSync implements the interface.
var _ driving.StatusSynchronizer = (*StatusSync)(nil)

// Default timing for the polling fallback.
const (
	// DefaultPollInterval is how often the poller queries the backend.
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxPollDuration is the failsafe bound on total polling
	// time. When exceeded, the synchronizer surfaces a terminal
	// timeout error status rather than polling forever.
	DefaultMaxPollDuration = 15 * time.Minute
)

// StatusSyncConfig configures the synchronizer timing.
type StatusSyncConfig struct {
	// PollInterval is the fixed polling interval (default 2s).
	PollInterval time.Duration

	// MaxPollDuration is the polling failsafe bound (default 15m).
	MaxPollDuration time.Duration
}

// StatusSync reconciles two independently-arriving, possibly
// inconsistent status feeds - a best-effort push channel and a polling
// fallback - into one authoritative, monotonic ProcessingStatus per
// document. Reconciliation uses the rank-based merge in
// domain.MergeStatus, so replays, duplicate pushes and out-of-order
// poll results can never roll the displayed value backward.
type StatusSync struct {
	channel driven.StatusChannel // optional; nil degrades to polling only
	poller  driven.StatusPoller
	store   driven.ChatStore // optional; receives metadata refreshes
	cfg     StatusSyncConfig

	mu      sync.Mutex
	current map[string]domain.ProcessingStatus
}

// NewStatusSync creates a synchronizer over the given feeds.
// channel and store may be nil; poller is required.
func NewStatusSync(channel driven.StatusChannel, poller driven.StatusPoller, store driven.ChatStore, cfg StatusSyncConfig) *StatusSync {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollDuration <= 0 {
		cfg.MaxPollDuration = DefaultMaxPollDuration
	}
	return &StatusSync{
		channel: channel,
		poller:  poller,
		store:   store,
		cfg:     cfg,
		current: make(map[string]domain.ProcessingStatus),
	}
}

// Current returns the latest reconciled status for the document.
func (s *StatusSync) Current(documentID string) domain.ProcessingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current[documentID]
}

// Subscribe begins the push subscription and the polling loop for the
// document. Every reconciled change is delivered to onUpdate. The
// returned unsubscribe function tears both feeds down; once it
// returns, onUpdate is never invoked again. It must not be called
// from inside onUpdate.
func (s *StatusSync) Subscribe(ctx context.Context, documentID string, onUpdate func(domain.ProcessingStatus)) (func(), error) {
	if documentID == "" {
		return nil, fmt.Errorf("subscribe status: %w", domain.ErrInvalidInput)
	}
	if s.poller == nil {
		return nil, fmt.Errorf("subscribe status: no status poller configured")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &statusSubscription{
		sync:       s,
		documentID: documentID,
		onUpdate:   onUpdate,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	// A re-subscription starts from what earlier feeds already
	// established for this document, so a late or partial snapshot can
	// never regress the recorded value. A job already terminal has
	// nothing left to reconcile: deliver the final status and skip
	// both feeds.
	seed := s.Current(documentID)
	sub.current = seed
	if seed.Terminal() {
		sub.terminal = true
		close(sub.done)
		if onUpdate != nil {
			onUpdate(seed)
		}
		return sub.unsubscribe, nil
	}

	// Push subscription is best-effort: a channel that cannot connect
	// must not block terminal detection, so failures only log.
	if s.channel != nil {
		unsub, err := s.channel.Subscribe(subCtx, documentID, sub.applySnapshot)
		if err != nil {
			logger.Warn("push channel unavailable for %s, polling only: %v", documentID, err)
		} else {
			sub.unsubPush = unsub
		}
	}

	go sub.pollLoop(subCtx)

	return sub.unsubscribe, nil
}

// statusSubscription is the live reconciliation state for one document view.
type statusSubscription struct {
	sync       *StatusSync
	documentID string
	onUpdate   func(domain.ProcessingStatus)
	cancel     context.CancelFunc
	unsubPush  func()
	done       chan struct{}

	mu       sync.Mutex
	current  domain.ProcessingStatus
	closed   bool
	terminal bool
}

// applySnapshot reconciles one incoming snapshot from either feed.
// The callback runs under the subscription lock, which is what makes
// "no callbacks after unsubscribe returns" hold.
func (sub *statusSubscription) applySnapshot(snap domain.DocumentSnapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed {
		return
	}

	merged := domain.MergeStatus(sub.current, snap.Status)
	if merged == sub.current {
		return
	}
	sub.current = merged

	sub.sync.mu.Lock()
	sub.sync.current[sub.documentID] = merged
	sub.sync.mu.Unlock()

	if merged.Terminal() && !sub.terminal {
		sub.terminal = true
		// Stop polling a terminal job.
		sub.cancel()
		logger.Info("document %s reached terminal status (ready=%v)", sub.documentID, merged.AIReady)
	}

	sub.refreshMetadata(snap)

	if sub.onUpdate != nil {
		sub.onUpdate(merged)
	}
}

// refreshMetadata writes job-reported metadata (page count, language,
// word count) through to the durable store once the backend fills it
// in. Failures are logged, not surfaced: metadata refresh is cosmetic.
func (sub *statusSubscription) refreshMetadata(snap domain.DocumentSnapshot) {
	if sub.sync.store == nil {
		return
	}
	if snap.PageCount == 0 && snap.Language == "" && snap.WordCount == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sub.sync.store.UpdateDocumentProcessing(ctx, sub.documentID, snap); err != nil {
		logger.Warn("metadata refresh for %s failed: %v", sub.documentID, err)
	}
}

// pollLoop queries the backend at the fixed interval until the job is
// terminal, the subscription is torn down, or the failsafe duration
// elapses. Individual poll failures are swallowed and retried on the
// next tick.
func (sub *statusSubscription) pollLoop(ctx context.Context) {
	defer close(sub.done)

	deadline := time.Now().Add(sub.sync.cfg.MaxPollDuration)

	ticker := time.NewTicker(sub.sync.cfg.PollInterval)
	defer ticker.Stop()

	sub.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Now().After(deadline) {
				sub.applySnapshot(domain.DocumentSnapshot{
					Status: domain.ProcessingStatus{
						Error: fmt.Sprintf("processing did not complete within %s", sub.sync.cfg.MaxPollDuration),
					},
				})
				return
			}
			sub.pollOnce(ctx)
		}
	}
}

func (sub *statusSubscription) pollOnce(ctx context.Context) {
	snap, err := sub.sync.poller.FetchStatus(ctx, sub.documentID)
	if err != nil {
		if ctx.Err() == nil {
			logger.Debug("status poll for %s failed, retrying: %v", sub.documentID, err)
		}
		return
	}
	sub.applySnapshot(*snap)
}

// unsubscribe tears down both feeds. Acquiring the subscription lock
// first means any in-flight callback completes before closed flips,
// so no callback can run after this returns.
func (sub *statusSubscription) unsubscribe() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.mu.Unlock()

	sub.cancel()
	if sub.unsubPush != nil {
		sub.unsubPush()
	}
	<-sub.done
}
