// Package strategy implements the inventory-aware quoting algorithm and the
// risk gate for binary prediction markets (prices in [0.01, 0.99]).
//
// The core idea: post a bid below and an ask above the midpoint, then shift
// both sides against the current inventory. When the engine is long, both
// quotes move down so it becomes more eager to sell and less eager to buy;
// symmetric when short.
//
// Per quote:
//  1. half_spread = spread_bps / 10000 / 2
//  2. bid = mid - half_spread - skew, ask = mid + half_spread - skew,
//     where skew = net_position * skew_factor
//  3. Round bid down and ask up to the 0.01 tick, clamp to [0.01, 0.99].
//  4. Throttle size once inventory passes 80% of its cap.
//
// All arithmetic is decimal; the quoter is a pure function of its inputs.
package strategy

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"eutrader/internal/config"
	"eutrader/pkg/types"
)

// Tick is the minimum price increment for quoted markets.
var Tick = decimal.New(1, -2) // 0.01

var (
	minPrice = decimal.New(1, -2)  // 0.01
	maxPrice = decimal.New(99, -2) // 0.99

	bpsDenominator = decimal.NewFromInt(10_000)
	two            = decimal.NewFromInt(2)
	one            = decimal.NewFromInt(1)

	throttleKnee  = decimal.New(8, -1) // size reduction starts at 80% utilization
	throttleRange = decimal.New(2, -1) // and ramps over the remaining 20%
	throttleDepth = decimal.New(8, -1) // dropping at most 80% of nominal size
	throttleFloor = decimal.New(2, -1) // never below 20% of nominal size
)

// ComputeQuote computes a two-sided quote for a market.
//
// Returns nil when the spread collapses (bid >= ask after skew and
// clamping), which tells the manager to pull all quotes for the token.
func ComputeQuote(
	snapshot types.MarketSnapshot,
	position *types.InventoryPosition,
	cfg config.MarketConfig,
) *types.Quote {
	mid := snapshot.Midpoint

	halfSpread := decimal.NewFromInt(int64(cfg.SpreadBps)).
		Div(bpsDenominator).
		Div(two)

	bid := mid.Sub(halfSpread)
	ask := mid.Add(halfSpread)

	// Positive net position (long) pushes both quotes down.
	skew := position.NetPosition.Mul(cfg.SkewFactor)
	bid = bid.Sub(skew)
	ask = ask.Sub(skew)

	// Floor the bid and ceil the ask so rounding only ever widens the
	// spread: we never post a bid above the continuous bid nor an ask
	// below the continuous ask.
	bid = floorToTick(bid)
	ask = ceilToTick(ask)

	bid = clampPrice(bid)
	ask = clampPrice(ask)

	if bid.GreaterThanOrEqual(ask) {
		slog.Debug("spread too tight after skew and clamp, no quote",
			"token_id", snapshot.TokenID,
			"bid", bid,
			"ask", ask,
		)
		return nil
	}

	size := cfg.Size
	if cfg.MaxInventory.Sign() > 0 {
		utilization := position.NetPosition.Abs().Div(cfg.MaxInventory)
		if utilization.GreaterThan(throttleKnee) {
			// Linear ramp: full size at 80% usage, 20% of nominal at 100%,
			// never below one share.
			reduction := one.Sub(utilization.Sub(throttleKnee).Div(throttleRange).Mul(throttleDepth))
			size = decimal.Max(size.Mul(decimal.Max(reduction, throttleFloor)), one)
		}
	}

	return &types.Quote{
		TokenID:  snapshot.TokenID,
		BidPrice: bid,
		AskPrice: ask,
		Size:     size,
	}
}

func floorToTick(v decimal.Decimal) decimal.Decimal {
	return v.Div(Tick).Floor().Mul(Tick)
}

func ceilToTick(v decimal.Decimal) decimal.Decimal {
	return v.Div(Tick).Ceil().Mul(Tick)
}

func clampPrice(v decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(v, minPrice), maxPrice)
}
