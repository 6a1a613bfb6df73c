// Package engine contains the execution backends and the order manager
// driving the quote-reconcile loop.
package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"eutrader/pkg/types"
)

// Executor is the order execution backend.
//
// PaperExecutor simulates fills against live market data; a live executor
// hitting the CLOB API would satisfy the same interface. The manager is
// written against this interface only.
type Executor interface {
	// PlaceOrder posts a limit order on the given token and side.
	PlaceOrder(ctx context.Context, tokenID string, side types.Side, price, size decimal.Decimal) (types.OrderID, error)

	// CancelOrder cancels a single open order. Cancelling an unknown ID is
	// not an error: the order may have just filled.
	CancelOrder(ctx context.Context, id types.OrderID) error

	// CancelAll cancels every open order managed by this executor.
	CancelAll(ctx context.Context) error

	// OpenOrders returns all currently open orders.
	OpenOrders(ctx context.Context) ([]types.OpenOrder, error)
}
