package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"eutrader/internal/metrics"
	"eutrader/pkg/types"
)

// PaperExecutor simulates order execution against live market data without
// placing real orders. All state lives behind one mutex, so every method is
// atomic with respect to the others; an order removed by CheckFills can
// never fill a second time.
type PaperExecutor struct {
	mu          sync.Mutex
	orders      map[types.OrderID]types.OpenOrder
	fills       []types.Fill
	nextID      uint64
	journalPath string
	logger      *slog.Logger
}

// NewPaperExecutor creates a paper executor with empty state. Simulated
// fills are appended to the journal file at journalPath, one JSON object
// per line.
func NewPaperExecutor(journalPath string, logger *slog.Logger) *PaperExecutor {
	return &PaperExecutor{
		orders:      make(map[types.OrderID]types.OpenOrder),
		nextID:      1,
		journalPath: journalPath,
		logger:      logger.With("component", "paper"),
	}
}

// PlaceOrder inserts a virtual order into the book.
func (e *PaperExecutor) PlaceOrder(
	_ context.Context,
	tokenID string,
	side types.Side,
	price, size decimal.Decimal,
) (types.OrderID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := types.OrderID(fmt.Sprintf("paper-%d", e.nextID))
	e.nextID++

	e.orders[id] = types.OpenOrder{
		ID:      id,
		TokenID: tokenID,
		Side:    side,
		Price:   price,
		Size:    size,
	}

	e.logger.Debug("paper order placed",
		"order_id", id,
		"side", side,
		"price", price,
		"size", size,
		"token_id", tokenID,
	)
	metrics.OrdersPlacedTotal.WithLabelValues(string(side)).Inc()
	return id, nil
}

// CancelOrder removes a virtual order. An unknown ID is a no-op: the order
// already filled or was cancelled.
func (e *PaperExecutor) CancelOrder(_ context.Context, id types.OrderID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.orders[id]; ok {
		delete(e.orders, id)
		e.logger.Debug("paper order cancelled", "order_id", id)
		metrics.OrdersCancelledTotal.Inc()
	} else {
		e.logger.Debug("cancel: order not found (already filled or cancelled)", "order_id", id)
	}
	return nil
}

// CancelAll clears the virtual book.
func (e *PaperExecutor) CancelAll(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := len(e.orders)
	clear(e.orders)
	if count > 0 {
		metrics.OrdersCancelledTotal.Add(float64(count))
	}
	e.logger.Info("cancelled all paper orders", "count", count)
	return nil
}

// OpenOrders returns a copy of all currently open virtual orders.
func (e *PaperExecutor) OpenOrders(_ context.Context) ([]types.OpenOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.OpenOrder, 0, len(e.orders))
	for _, o := range e.orders {
		out = append(out, o)
	}
	return out, nil
}

// CheckFills evaluates whether any virtual orders would have been filled by
// the market prices in the snapshot:
//
//   - a buy fills when best_ask <= the order's bid price
//   - a sell fills when best_bid >= the order's ask price
//
// Fills execute at the order's own price for its full size. Crossed orders
// are removed from the book and appended to the journal before the fills
// are returned.
func (e *PaperExecutor) CheckFills(snapshot types.MarketSnapshot) []types.Fill {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fills []types.Fill
	for id, order := range e.orders {
		if order.TokenID != snapshot.TokenID {
			continue
		}

		var crossed bool
		switch order.Side {
		case types.BUY:
			crossed = snapshot.BestAsk.LessThanOrEqual(order.Price)
		case types.SELL:
			crossed = snapshot.BestBid.GreaterThanOrEqual(order.Price)
		}
		if !crossed {
			continue
		}

		fill := types.Fill{
			TokenID:     order.TokenID,
			Side:        order.Side,
			Price:       order.Price,
			Size:        order.Size,
			Timestamp:   time.Now().UTC(),
			IsSimulated: true,
		}

		e.logger.Info("paper fill",
			"side", fill.Side,
			"price", fill.Price,
			"size", fill.Size,
			"token_id", fill.TokenID,
		)
		metrics.FillsTotal.WithLabelValues(string(fill.Side)).Inc()

		delete(e.orders, id)
		fills = append(fills, fill)
	}

	for _, fill := range fills {
		e.fills = append(e.fills, fill)
		e.writeJournal(fill)
	}

	return fills
}

// FillLog returns a copy of all recorded fills.
func (e *PaperExecutor) FillLog() []types.Fill {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.Fill(nil), e.fills...)
}

// FillCount returns the total number of simulated fills so far.
func (e *PaperExecutor) FillCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fills)
}

// writeJournal appends one fill record to the journal. Journal writes are
// best-effort: a failure is logged and never interrupts trading.
func (e *PaperExecutor) writeJournal(fill types.Fill) {
	line, err := json.Marshal(fill)
	if err != nil {
		e.logger.Warn("failed to serialize fill for journal", "error", err)
		return
	}

	f, err := os.OpenFile(e.journalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		e.logger.Warn("failed to open paper trade journal", "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		e.logger.Warn("failed to write paper trade journal", "error", err)
	}
}
