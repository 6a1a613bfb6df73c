package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"eutrader/internal/config"
	"eutrader/internal/dashboard"
	"eutrader/internal/metrics"
	"eutrader/internal/strategy"
	"eutrader/pkg/types"
)

// OrderManager is the main market-making loop. It consumes market
// snapshots, computes target quotes, checks risk limits, and reconciles
// open orders through the executor.
//
// The manager exclusively owns the inventory and market-config maps;
// no other goroutine touches them.
type OrderManager struct {
	executor Executor
	// paper is set when the executor is a PaperExecutor; the manager then
	// drives fill simulation before each quote cycle.
	paper *PaperExecutor

	cfg           config.Config
	marketConfigs map[string]config.MarketConfig
	positions     map[string]*types.InventoryPosition
	// lastMids tracks the most recent midpoint per token for marking
	// unrealized P&L in the kill-switch check.
	lastMids map[string]decimal.Decimal

	sink   *dashboard.Sink
	logger *slog.Logger
}

// NewOrderManager builds an order manager over the given executor. The
// dashboard sink may be nil; updates are then no-ops.
func NewOrderManager(
	executor Executor,
	cfg config.Config,
	sink *dashboard.Sink,
	logger *slog.Logger,
) *OrderManager {
	marketConfigs := make(map[string]config.MarketConfig, len(cfg.Markets))
	for _, m := range cfg.Markets {
		marketConfigs[m.TokenID] = m
	}

	m := &OrderManager{
		executor:      executor,
		cfg:           cfg,
		marketConfigs: marketConfigs,
		positions:     make(map[string]*types.InventoryPosition),
		lastMids:      make(map[string]decimal.Decimal),
		sink:          sink,
		logger:        logger.With("component", "manager"),
	}
	if paper, ok := executor.(*PaperExecutor); ok {
		m.paper = paper
	}
	return m
}

// Run consumes the snapshot stream until it closes or ctx is cancelled,
// then cancels all outstanding orders and logs a final P&L summary.
//
// Per snapshot the manager:
//  1. (paper mode) applies any simulated fills to inventory
//  2. drops snapshots for unconfigured tokens
//  3. evaluates portfolio limits and the kill switch
//  4. computes a target quote; a nil quote pulls all orders
//  5. runs the per-order risk check; a breach pulls all orders
//  6. reconciles open orders against the target
//  7. updates the dashboard sink
func (m *OrderManager) Run(ctx context.Context, snapshots <-chan types.MarketSnapshot) {
	m.logger.Info("order manager started, waiting for market data", "mode", m.cfg.Mode)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("shutdown signal received")
			m.shutdown()
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				m.logger.Info("snapshot stream ended, shutting down")
				m.shutdown()
				return
			}
			metrics.SnapshotsTotal.Inc()
			if err := m.handleSnapshot(ctx, snapshot); err != nil {
				m.logger.Error("error handling snapshot",
					"token_id", snapshot.TokenID,
					"error", err,
				)
			}
		}
	}
}

func (m *OrderManager) handleSnapshot(ctx context.Context, snapshot types.MarketSnapshot) error {
	tokenID := snapshot.TokenID

	if m.paper != nil {
		if fills := m.paper.CheckFills(snapshot); len(fills) > 0 {
			m.applyFills(fills)
		}
	}

	m.lastMids[tokenID] = snapshot.Midpoint

	marketCfg, ok := m.marketConfigs[tokenID]
	if !ok {
		m.logger.Debug("ignoring snapshot for unconfigured token", "token_id", tokenID)
		return nil
	}

	position := m.position(tokenID)

	all := m.allPositions()
	if strategy.ShouldKillSwitchWithPrices(all, m.lastMids, m.cfg.Risk) {
		m.logger.Error("kill switch engaged, pulling all quotes")
		return m.executor.CancelAll(ctx)
	}
	if err := strategy.CheckPortfolio(all, m.cfg.Risk); err != nil {
		m.logger.Warn("portfolio check failed, pulling quotes", "reason", err)
		return m.executor.CancelAll(ctx)
	}

	target := strategy.ComputeQuote(snapshot, position, marketCfg)
	if target == nil {
		m.logger.Debug("no quote for this book, pulling quotes", "token_id", tokenID)
		return m.executor.CancelAll(ctx)
	}

	if err := strategy.CheckOrder(position, target, m.cfg.Risk); err != nil {
		m.logger.Warn("risk check failed, pulling quotes",
			"token_id", tokenID,
			"reason", err,
		)
		return m.executor.CancelAll(ctx)
	}

	if err := m.reconcileOrders(ctx, tokenID, target); err != nil {
		return err
	}

	unrealized := position.UnrealizedPnL(snapshot.Midpoint)
	m.logger.Info("quote cycle",
		"token_id", tokenID,
		"mid", snapshot.Midpoint,
		"our_bid", target.BidPrice,
		"our_ask", target.AskPrice,
		"spread", target.Spread(),
		"inventory", position.NetPosition,
		"realized_pnl", position.RealizedPnL,
		"unrealized_pnl", unrealized,
		"fills", position.FillCount,
	)
	metrics.QuoteCyclesTotal.WithLabelValues(tokenID).Inc()

	m.sink.UpdateMarket(dashboard.MarketRow{
		Name:          marketCfg.Name,
		TokenID:       tokenID,
		Midpoint:      snapshot.Midpoint,
		OurBid:        target.BidPrice,
		OurAsk:        target.AskPrice,
		Spread:        target.Spread(),
		Inventory:     position.NetPosition,
		RealizedPnL:   position.RealizedPnL,
		UnrealizedPnL: unrealized,
		FillCount:     position.FillCount,
		LastUpdate:    snapshot.Timestamp,
	})

	return nil
}

// reconcileOrders brings the posted book into equality with the target
// quote. When the two resting orders already match exactly, nothing is
// cancelled or placed, so a stable quote does not churn the book.
func (m *OrderManager) reconcileOrders(ctx context.Context, tokenID string, target *types.Quote) error {
	current, err := m.executor.OpenOrders(ctx)
	if err != nil {
		return err
	}

	var mine []types.OpenOrder
	for _, o := range current {
		if o.TokenID == tokenID {
			mine = append(mine, o)
		}
	}

	hasMatchingBid := false
	hasMatchingAsk := false
	for _, o := range mine {
		switch {
		case o.Side == types.BUY && o.Price.Equal(target.BidPrice) && o.Size.Equal(target.Size):
			hasMatchingBid = true
		case o.Side == types.SELL && o.Price.Equal(target.AskPrice) && o.Size.Equal(target.Size):
			hasMatchingAsk = true
		}
	}

	if len(mine) == 2 && hasMatchingBid && hasMatchingAsk {
		m.logger.Debug("orders already match target, no action", "token_id", tokenID)
		return nil
	}

	for _, o := range mine {
		if err := m.executor.CancelOrder(ctx, o.ID); err != nil {
			return err
		}
	}

	if target.BidPrice.Sign() > 0 && target.Size.Sign() > 0 {
		if _, err := m.executor.PlaceOrder(ctx, tokenID, types.BUY, target.BidPrice, target.Size); err != nil {
			return err
		}
	}
	if target.AskPrice.Sign() > 0 && target.Size.Sign() > 0 {
		if _, err := m.executor.PlaceOrder(ctx, tokenID, types.SELL, target.AskPrice, target.Size); err != nil {
			return err
		}
	}

	return nil
}

// applyFills feeds simulated fills through inventory accounting, exactly
// once per fill.
func (m *OrderManager) applyFills(fills []types.Fill) {
	for _, fill := range fills {
		position := m.position(fill.TokenID)
		position.ApplyFill(fill)

		m.logger.Info("fill",
			"token_id", fill.TokenID,
			"side", fill.Side,
			"price", fill.Price,
			"size", fill.Size,
			"net_position", position.NetPosition,
			"realized_pnl", position.RealizedPnL,
		)

		netPos, _ := position.NetPosition.Float64()
		metrics.NetPosition.WithLabelValues(fill.TokenID).Set(netPos)
		metrics.RealizedPnL.Set(m.totalRealizedFloat())

		m.sink.AddFill(dashboard.FillRow{
			Timestamp:  fill.Timestamp,
			MarketName: m.marketName(fill.TokenID),
			Side:       fill.Side,
			Price:      fill.Price,
			Size:       fill.Size,
			PnLAfter:   position.RealizedPnL,
		})
	}
}

// position returns the inventory for a token, creating it on first use.
func (m *OrderManager) position(tokenID string) *types.InventoryPosition {
	p, ok := m.positions[tokenID]
	if !ok {
		p = types.NewInventoryPosition(tokenID)
		m.positions[tokenID] = p
	}
	return p
}

func (m *OrderManager) allPositions() []*types.InventoryPosition {
	out := make([]*types.InventoryPosition, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

func (m *OrderManager) marketName(tokenID string) string {
	if cfg, ok := m.marketConfigs[tokenID]; ok && cfg.Name != "" {
		return cfg.Name
	}
	return tokenID
}

func (m *OrderManager) totalRealizedFloat() float64 {
	total := decimal.Zero
	for _, p := range m.positions {
		total = total.Add(p.RealizedPnL)
	}
	f, _ := total.Float64()
	return f
}

// shutdown cancels all outstanding orders and logs the final P&L summary.
// It runs on a fresh context: on the cancellation path the loop context is
// already cancelled by the time we get here.
func (m *OrderManager) shutdown() {
	m.logger.Info("cancelling all open orders...")
	if err := m.executor.CancelAll(context.Background()); err != nil {
		m.logger.Error("failed to cancel orders during shutdown", "error", err)
	}

	m.logPnLSummary()
}

// logPnLSummary reports realized P&L and fill counts per token plus totals.
func (m *OrderManager) logPnLSummary() {
	m.logger.Info("=== Final PnL Summary ===")

	totalRealized := decimal.Zero
	var totalFills uint64

	for tokenID, p := range m.positions {
		m.logger.Info("position",
			"token_id", tokenID,
			"net_position", p.NetPosition,
			"avg_entry", p.AvgEntry,
			"realized_pnl", p.RealizedPnL,
			"fills", p.FillCount,
		)
		totalRealized = totalRealized.Add(p.RealizedPnL)
		totalFills += p.FillCount
	}

	m.logger.Info("session complete",
		"total_realized_pnl", totalRealized,
		"total_fills", totalFills,
	)
}

// Positions returns the tracked inventory map. The caller must not retain
// it across manager operations; it exists for tests.
func (m *OrderManager) Positions() map[string]*types.InventoryPosition {
	return m.positions
}
