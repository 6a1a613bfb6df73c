package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"eutrader/internal/metrics"
	"eutrader/pkg/types"
)

// DefaultIntervalMs is the default polling interval in milliseconds.
const DefaultIntervalMs = 1000

// subscriberBuffer bounds each subscriber's snapshot backlog. Once a
// consumer falls this far behind, the oldest buffered snapshots are dropped:
// stale market data is worthless, freshness beats completeness.
const subscriberBuffer = 256

// FeedManager polls the orderbook for each configured token on a fixed
// interval and broadcasts snapshots to subscribers.
type FeedManager struct {
	tokenIDs []string
	interval time.Duration
	client   *BookClient
	logger   *slog.Logger

	mu     sync.Mutex
	subs   []*subscriber
	closed bool
}

type subscriber struct {
	ch      chan types.MarketSnapshot
	skipped uint64
}

// NewFeedManager creates a feed over the given tokens with the default
// 1000 ms polling interval.
func NewFeedManager(tokenIDs []string, logger *slog.Logger) *FeedManager {
	return NewFeedManagerWithInterval(tokenIDs, DefaultIntervalMs, logger)
}

// NewFeedManagerWithInterval creates a feed with a custom polling interval.
func NewFeedManagerWithInterval(tokenIDs []string, intervalMs uint64, logger *slog.Logger) *FeedManager {
	if intervalMs == 0 {
		intervalMs = DefaultIntervalMs
	}
	return &FeedManager{
		tokenIDs: tokenIDs,
		interval: time.Duration(intervalMs) * time.Millisecond,
		client:   NewBookClient("", logger),
		logger:   logger.With("component", "feed"),
	}
}

// Subscribe registers a new consumer. The returned channel is closed when
// the feed stops; consumers should treat closure as end of stream.
// Subscribe must be called before Run.
func (f *FeedManager) Subscribe() <-chan types.MarketSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &subscriber{ch: make(chan types.MarketSnapshot, subscriberBuffer)}
	f.subs = append(f.subs, sub)
	return sub.ch
}

// Run polls each token every interval and publishes snapshots until ctx is
// cancelled, then closes all subscriber channels. Per-token fetch failures
// are logged and do not stop the feed.
func (f *FeedManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	defer f.close()

	f.logger.Info("feed manager started",
		"tokens", len(f.tokenIDs),
		"interval_ms", f.interval.Milliseconds(),
	)

	// Poll immediately so the manager does not idle through the first tick.
	f.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("feed manager stopping")
			return nil
		case <-ticker.C:
			f.poll(ctx)
		}
	}
}

func (f *FeedManager) poll(ctx context.Context) {
	for _, tokenID := range f.tokenIDs {
		if ctx.Err() != nil {
			return
		}

		book, err := f.client.GetOrderBook(ctx, tokenID)
		if err != nil {
			f.logger.Warn("failed to fetch orderbook", "token_id", tokenID, "error", err)
			continue
		}

		snapshot := ToSnapshot(tokenID, book)
		if snapshot == nil {
			continue
		}
		f.publish(*snapshot)
	}
}

// publish delivers a snapshot to every subscriber. A full subscriber loses
// its oldest buffered snapshot so the newest data always gets through.
func (f *FeedManager) publish(snap types.MarketSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	for _, sub := range f.subs {
		select {
		case sub.ch <- snap:
			continue
		default:
		}

		// Buffer full: drop the oldest, then retry once.
		select {
		case <-sub.ch:
			sub.skipped++
			metrics.FeedLagDropsTotal.Inc()
		default:
		}
		select {
		case sub.ch <- snap:
		default:
		}
		f.logger.Warn("feed consumer lagged, dropped oldest snapshot",
			"token_id", snap.TokenID,
			"skipped_total", sub.skipped,
		)
	}
}

func (f *FeedManager) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, sub := range f.subs {
		close(sub.ch)
	}
}
