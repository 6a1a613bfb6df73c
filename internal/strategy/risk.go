package strategy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"eutrader/internal/config"
	"eutrader/pkg/types"
)

// ErrRiskBreach marks errors returned by the risk gate. The manager treats
// these as local: log a warning, pull quotes, keep the loop running.
var ErrRiskBreach = errors.New("risk breach")

// CheckOrder validates that a quote does not breach per-market position
// limits. Both hypothetical fills are checked: a bid fill increases the
// position by quote.Size, an ask fill decreases it.
func CheckOrder(
	position *types.InventoryPosition,
	quote *types.Quote,
	cfg config.RiskConfig,
) error {
	afterBuy := position.NetPosition.Add(quote.Size)
	if afterBuy.Abs().GreaterThan(cfg.MaxPositionPerMarket) {
		return fmt.Errorf("%w: bid fill would breach per-market limit: position would be %s (max %s)",
			ErrRiskBreach, afterBuy, cfg.MaxPositionPerMarket)
	}

	afterSell := position.NetPosition.Sub(quote.Size)
	if afterSell.Abs().GreaterThan(cfg.MaxPositionPerMarket) {
		return fmt.Errorf("%w: ask fill would breach per-market limit: position would be %s (max %s)",
			ErrRiskBreach, afterSell, cfg.MaxPositionPerMarket)
	}

	slog.Debug("order passed risk check",
		"token_id", quote.TokenID,
		"net_position", position.NetPosition,
		"quote_size", quote.Size,
	)
	return nil
}

// CheckPortfolio validates that total exposure across all positions stays
// within max_total_exposure. Exposure is the sum of absolute net positions.
func CheckPortfolio(positions []*types.InventoryPosition, cfg config.RiskConfig) error {
	totalExposure := decimal.Zero
	for _, p := range positions {
		totalExposure = totalExposure.Add(p.NetPosition.Abs())
	}

	if totalExposure.GreaterThan(cfg.MaxTotalExposure) {
		return fmt.Errorf("%w: total exposure %s exceeds max %s",
			ErrRiskBreach, totalExposure, cfg.MaxTotalExposure)
	}

	slog.Debug("portfolio exposure within limits",
		"total_exposure", totalExposure,
		"max", cfg.MaxTotalExposure,
	)
	return nil
}

// ShouldKillSwitch is the mid-price-free variant of the kill switch check.
//
// It marks every position at its own average entry, which makes unrealized
// P&L zero by construction, so it can never fire. It exists as a debug
// sentinel for callers that have no market data at hand;
// ShouldKillSwitchWithPrices is the production path.
func ShouldKillSwitch(positions []*types.InventoryPosition, cfg config.RiskConfig) bool {
	mids := make(map[string]decimal.Decimal, len(positions))
	for _, p := range positions {
		mids[p.TokenID] = p.AvgEntry
	}
	return ShouldKillSwitchWithPrices(positions, mids, cfg)
}

// ShouldKillSwitchWithPrices reports whether trading should stop because
// aggregate unrealized loss exceeds max_unrealized_loss.
//
// mids maps token IDs to current mid prices. A position without a mid is
// marked at its average entry and contributes nothing.
func ShouldKillSwitchWithPrices(
	positions []*types.InventoryPosition,
	mids map[string]decimal.Decimal,
	cfg config.RiskConfig,
) bool {
	totalUnrealized := decimal.Zero
	for _, p := range positions {
		mid, ok := mids[p.TokenID]
		if !ok {
			mid = p.AvgEntry
		}
		totalUnrealized = totalUnrealized.Add(p.UnrealizedPnL(mid))
	}

	if totalUnrealized.Sign() < 0 && totalUnrealized.Abs().GreaterThan(cfg.MaxUnrealizedLoss) {
		slog.Warn("KILL SWITCH TRIGGERED: unrealized loss exceeds limit",
			"total_unrealized", totalUnrealized,
			"max_loss", cfg.MaxUnrealizedLoss,
		)
		return true
	}

	return false
}
