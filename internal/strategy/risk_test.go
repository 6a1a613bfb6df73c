package strategy

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"eutrader/internal/config"
	"eutrader/pkg/types"
)

func makeRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxPositionPerMarket:   dec("100"),
		MaxTotalExposure:       dec("500"),
		MaxUnrealizedLoss:      dec("50"),
		QuoteRefreshIntervalMs: 1000,
	}
}

func makePosition(token, net string) *types.InventoryPosition {
	return &types.InventoryPosition{
		TokenID:     token,
		NetPosition: dec(net),
		AvgEntry:    dec("0.50"),
	}
}

func makeQuote(size string) *types.Quote {
	return &types.Quote{
		TokenID:  "tok_test",
		BidPrice: dec("0.48"),
		AskPrice: dec("0.52"),
		Size:     dec(size),
	}
}

func TestOrderWithinLimitsPasses(t *testing.T) {
	t.Parallel()
	if err := CheckOrder(makePosition("tok_test", "30"), makeQuote("10"), makeRiskConfig()); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
}

func TestOrderBreachingBuyLimitFails(t *testing.T) {
	t.Parallel()
	// After a bid fill: 95 + 10 = 105 > 100.
	err := CheckOrder(makePosition("tok_test", "95"), makeQuote("10"), makeRiskConfig())
	if err == nil {
		t.Fatal("expected breach")
	}
	if !errors.Is(err, ErrRiskBreach) {
		t.Fatalf("error %v is not ErrRiskBreach", err)
	}
}

func TestOrderBreachingSellLimitFails(t *testing.T) {
	t.Parallel()
	// After an ask fill: -95 - 10 = -105, abs > 100.
	err := CheckOrder(makePosition("tok_test", "-95"), makeQuote("10"), makeRiskConfig())
	if !errors.Is(err, ErrRiskBreach) {
		t.Fatalf("expected ErrRiskBreach, got %v", err)
	}
}

func TestCheckOrderIsDeterministic(t *testing.T) {
	t.Parallel()
	pos := makePosition("tok_test", "95")
	quote := makeQuote("10")
	cfg := makeRiskConfig()

	first := CheckOrder(pos, quote, cfg)
	for i := 0; i < 5; i++ {
		if got := CheckOrder(pos, quote, cfg); (got == nil) != (first == nil) {
			t.Fatalf("CheckOrder result changed between calls: %v vs %v", first, got)
		}
	}
}

func TestPortfolioWithinLimitsPasses(t *testing.T) {
	t.Parallel()
	positions := []*types.InventoryPosition{
		makePosition("tok1", "50"),
		makePosition("tok2", "-30"),
		makePosition("tok3", "100"),
	}
	// Total exposure = 50 + 30 + 100 = 180 < 500.
	if err := CheckPortfolio(positions, makeRiskConfig()); err != nil {
		t.Fatalf("CheckPortfolio: %v", err)
	}
}

func TestPortfolioExceedingExposureFails(t *testing.T) {
	t.Parallel()
	positions := []*types.InventoryPosition{
		makePosition("tok1", "200"),
		makePosition("tok2", "-200"),
		makePosition("tok3", "150"),
	}
	// Total exposure = 550 > 500.
	err := CheckPortfolio(positions, makeRiskConfig())
	if !errors.Is(err, ErrRiskBreach) {
		t.Fatalf("expected ErrRiskBreach, got %v", err)
	}
}

func TestKillSwitchNotTriggeredWithinLimits(t *testing.T) {
	t.Parallel()
	positions := []*types.InventoryPosition{
		makePosition("tok1", "10"),
		makePosition("tok2", "-5"),
	}
	mids := map[string]decimal.Decimal{
		"tok1": dec("0.50"),
		"tok2": dec("0.50"),
	}
	if ShouldKillSwitchWithPrices(positions, mids, makeRiskConfig()) {
		t.Fatal("kill switch should not fire with zero unrealized loss")
	}
}

func TestKillSwitchTriggeredOnLargeLoss(t *testing.T) {
	t.Parallel()
	// Long 100 @ 0.50 marked at 0.10: -40. Short 100 @ 0.50 marked at 0.90: -40.
	// Total unrealized = -80, |.| > 50.
	positions := []*types.InventoryPosition{
		makePosition("tok1", "100"),
		makePosition("tok2", "-100"),
	}
	mids := map[string]decimal.Decimal{
		"tok1": dec("0.10"),
		"tok2": dec("0.90"),
	}
	if !ShouldKillSwitchWithPrices(positions, mids, makeRiskConfig()) {
		t.Fatal("kill switch should fire on -80 unrealized")
	}
}

func TestKillSwitchNotTriggeredOnProfit(t *testing.T) {
	t.Parallel()
	positions := []*types.InventoryPosition{
		{TokenID: "tok1", NetPosition: dec("100"), AvgEntry: dec("0.40")},
	}
	mids := map[string]decimal.Decimal{"tok1": dec("0.60")}
	if ShouldKillSwitchWithPrices(positions, mids, makeRiskConfig()) {
		t.Fatal("kill switch must not fire on unrealized profit")
	}
}

func TestSentinelKillSwitchNeverFires(t *testing.T) {
	t.Parallel()
	// The mid-free variant marks positions at their own entry, so even a
	// portfolio that is deep under water by any real mid reports zero.
	positions := []*types.InventoryPosition{
		makePosition("tok1", "100000"),
		makePosition("tok2", "-100000"),
	}
	if ShouldKillSwitch(positions, makeRiskConfig()) {
		t.Fatal("sentinel kill switch fired")
	}
}

func TestEmptyPortfolioPassesAllChecks(t *testing.T) {
	t.Parallel()
	cfg := makeRiskConfig()
	if err := CheckPortfolio(nil, cfg); err != nil {
		t.Errorf("CheckPortfolio(nil): %v", err)
	}
	if ShouldKillSwitch(nil, cfg) {
		t.Error("ShouldKillSwitch(nil) fired")
	}
}
