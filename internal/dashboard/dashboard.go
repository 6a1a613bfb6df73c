// Package dashboard holds the shared state behind the optional UI.
//
// The order manager is the single writer; the API server and any terminal
// view are readers. State lives behind one read-write lock and readers
// always receive a copy, so they hold the lock, and can delay the trading
// loop, only while that copy is made.
package dashboard

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"eutrader/pkg/types"
)

// recentFillCap bounds the activity log.
const recentFillCap = 50

// MarketRow is the per-market state displayed on the dashboard.
type MarketRow struct {
	Name          string          `json:"name"`
	TokenID       string          `json:"token_id"`
	Midpoint      decimal.Decimal `json:"midpoint"`
	OurBid        decimal.Decimal `json:"our_bid"`
	OurAsk        decimal.Decimal `json:"our_ask"`
	Spread        decimal.Decimal `json:"spread"`
	Inventory     decimal.Decimal `json:"inventory"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	FillCount     uint64          `json:"fill_count"`
	LastUpdate    time.Time       `json:"last_update"`
}

// FillRow is a recent fill for the activity log.
type FillRow struct {
	Timestamp  time.Time       `json:"timestamp"`
	MarketName string          `json:"market_name"`
	Side       types.Side      `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Size       decimal.Decimal `json:"size"`
	PnLAfter   decimal.Decimal `json:"pnl_after"`
}

// State is the full dashboard state, updated by the manager and read by
// the UI.
type State struct {
	Mode             string               `json:"mode"`
	UptimeStart      time.Time            `json:"uptime_start"`
	Markets          map[string]MarketRow `json:"markets"`
	RecentFills      []FillRow            `json:"recent_fills"`
	TotalRealizedPnL decimal.Decimal      `json:"total_realized_pnl"`
	TotalFills       uint64               `json:"total_fills"`
}

// Sink is the thread-safe handle to dashboard state. A nil *Sink is a
// valid no-op observer: every method tolerates a nil receiver, so callers
// never need to branch on whether a UI is attached.
type Sink struct {
	mu    sync.RWMutex
	state State
}

// NewSink creates a dashboard sink for the given mode label.
func NewSink(mode string) *Sink {
	return &Sink{
		state: State{
			Mode:        mode,
			UptimeStart: time.Now().UTC(),
			Markets:     make(map[string]MarketRow),
		},
	}
}

// UpdateMarket upserts a market row and refreshes the aggregate totals.
func (s *Sink) UpdateMarket(row MarketRow) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Markets[row.TokenID] = row
	s.refreshTotalsLocked()
}

// AddFill appends a fill to the activity log, keeping only the most
// recent entries.
func (s *Sink) AddFill(row FillRow) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.RecentFills = append(s.state.RecentFills, row)
	if n := len(s.state.RecentFills); n > recentFillCap {
		s.state.RecentFills = s.state.RecentFills[n-recentFillCap:]
	}
}

// Snapshot returns a copy of the current state. Safe to retain.
func (s *Sink) Snapshot() State {
	if s == nil {
		return State{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Markets = make(map[string]MarketRow, len(s.state.Markets))
	for k, v := range s.state.Markets {
		out.Markets[k] = v
	}
	out.RecentFills = append([]FillRow(nil), s.state.RecentFills...)
	return out
}

func (s *Sink) refreshTotalsLocked() {
	total := decimal.Zero
	var fills uint64
	for _, m := range s.state.Markets {
		total = total.Add(m.RealizedPnL)
		fills += m.FillCount
	}
	s.state.TotalRealizedPnL = total
	s.state.TotalFills = fills
}
