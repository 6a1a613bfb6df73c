// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the engine: sides, orders,
// fills, market snapshots, and inventory positions. It has no dependencies
// on internal packages, so it can be imported by any layer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of an order: BUY or SELL.
type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// OrderID uniquely identifies an order within an executor.
type OrderID string

// MarketSnapshot is a point-in-time view of one token's top of book.
//
// Producers guarantee BestBid < BestAsk (crossed books are dropped before a
// snapshot is emitted), Midpoint = (BestBid + BestAsk) / 2 and
// Spread = BestAsk - BestBid.
type MarketSnapshot struct {
	TokenID   string
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	Midpoint  decimal.Decimal
	Spread    decimal.Decimal
	Timestamp time.Time
}

// Quote is a two-sided quote the strategy wants posted on the book.
// Prices are tick-aligned and inside [0.01, 0.99]; Size applies to both sides.
type Quote struct {
	TokenID  string
	BidPrice decimal.Decimal
	AskPrice decimal.Decimal
	Size     decimal.Decimal
}

// Spread returns the width of the quote.
func (q Quote) Spread() decimal.Decimal {
	return q.AskPrice.Sub(q.BidPrice)
}

// OpenOrder is a live resting order held by an executor.
type OpenOrder struct {
	ID      OrderID
	TokenID string
	Side    Side
	Price   decimal.Decimal
	Size    decimal.Decimal
}

// Fill records a single execution. Each simulated fill is also serialized
// as one JSON line to the paper trade journal, so the field tags are the
// journal schema.
type Fill struct {
	TokenID     string          `json:"token_id"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	Timestamp   time.Time       `json:"timestamp"`
	IsSimulated bool            `json:"is_simulated"`
}

// InventoryPosition tracks holdings in a single token.
//
// NetPosition is positive when long, negative when short. AvgEntry is the
// size-weighted mean entry price of the currently open side; it carries no
// meaning while NetPosition is zero and may hold a stale value.
type InventoryPosition struct {
	TokenID     string
	NetPosition decimal.Decimal
	AvgEntry    decimal.Decimal
	RealizedPnL decimal.Decimal
	FillCount   uint64
}

// NewInventoryPosition creates an empty position for a token.
func NewInventoryPosition(tokenID string) *InventoryPosition {
	return &InventoryPosition{TokenID: tokenID}
}

// ApplyFill updates the position for one execution.
//
// A same-sign addition (including from flat) re-weights AvgEntry and
// realizes nothing. An opposite-sign addition realizes P&L on the closed
// quantity; if the fill flips the position through zero, the residual
// position was opened at this fill, so AvgEntry resets to the fill price.
func (p *InventoryPosition) ApplyFill(fill Fill) {
	signed := fill.Size
	if fill.Side == SELL {
		signed = signed.Neg()
	}

	old := p.NetPosition
	p.NetPosition = old.Add(signed)

	increasing := (old.Sign() >= 0 && signed.Sign() > 0) ||
		(old.Sign() <= 0 && signed.Sign() < 0)

	if increasing {
		oldCost := old.Abs().Mul(p.AvgEntry)
		newCost := signed.Abs().Mul(fill.Price)
		total := old.Abs().Add(signed.Abs())
		if total.Sign() > 0 {
			p.AvgEntry = oldCost.Add(newCost).Div(total)
		}
	} else {
		closed := decimal.Min(signed.Abs(), old.Abs())
		var perUnit decimal.Decimal
		if fill.Side == SELL {
			perUnit = fill.Price.Sub(p.AvgEntry)
		} else {
			perUnit = p.AvgEntry.Sub(fill.Price)
		}
		p.RealizedPnL = p.RealizedPnL.Add(closed.Mul(perUnit))

		flipped := (p.NetPosition.Sign() > 0 && old.Sign() < 0) ||
			(p.NetPosition.Sign() < 0 && old.Sign() > 0)
		if flipped {
			p.AvgEntry = fill.Price
		}
	}

	p.FillCount++
}

// UnrealizedPnL marks the open position against a mid price.
// Returns zero when the position is flat.
func (p *InventoryPosition) UnrealizedPnL(mid decimal.Decimal) decimal.Decimal {
	switch {
	case p.NetPosition.Sign() > 0:
		return p.NetPosition.Mul(mid.Sub(p.AvgEntry))
	case p.NetPosition.Sign() < 0:
		return p.NetPosition.Abs().Mul(p.AvgEntry.Sub(mid))
	default:
		return decimal.Zero
	}
}
