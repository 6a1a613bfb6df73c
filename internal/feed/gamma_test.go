package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"eutrader/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGammaMarketWithNativeTokenIDArray(t *testing.T) {
	t.Parallel()
	raw := `{
		"conditionId": "0xabc",
		"question": "Will it rain?",
		"tokens": [],
		"clobTokenIds": ["tok_yes_123", "tok_no_456"],
		"active": true,
		"closed": false,
		"volumeNum": 12345.67
	}`

	var m GammaMarket
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.ConditionID != "0xabc" {
		t.Errorf("condition id = %q", m.ConditionID)
	}
	if got := m.YesTokenID(); got != "tok_yes_123" {
		t.Errorf("yes token = %q, want tok_yes_123", got)
	}
	if got := m.NoTokenID(); got != "tok_no_456" {
		t.Errorf("no token = %q, want tok_no_456", got)
	}
}

func TestGammaMarketWithStringifiedTokenIDs(t *testing.T) {
	t.Parallel()
	raw := `{
		"conditionId": "0xdef",
		"question": "Will BTC hit 100k?",
		"clobTokenIds": "[\"tok_yes\",\"tok_no\"]",
		"active": true,
		"closed": false,
		"volumeNum": 99999.0
	}`

	var m GammaMarket
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := m.YesTokenID(); got != "tok_yes" {
		t.Errorf("yes token = %q, want tok_yes", got)
	}
	if got := m.NoTokenID(); got != "tok_no" {
		t.Errorf("no token = %q, want tok_no", got)
	}
}

func TestGammaMarketWithLegacyTokens(t *testing.T) {
	t.Parallel()
	raw := `{
		"conditionId": "0xdef",
		"question": "Will BTC hit 100k?",
		"tokens": [
			{ "token_id": "tok_yes", "outcome": "Yes", "price": "0.55" },
			{ "token_id": "tok_no", "outcome": "No", "price": "0.45" }
		],
		"active": true,
		"closed": false,
		"volumeNum": 99999.0
	}`

	var m GammaMarket
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := m.YesTokenID(); got != "tok_yes" {
		t.Errorf("yes token = %q, want tok_yes", got)
	}
	if got := m.NoTokenID(); got != "tok_no" {
		t.Errorf("no token = %q, want tok_no", got)
	}
}

func TestFilterMarketsVolumeAndState(t *testing.T) {
	t.Parallel()
	markets := []GammaMarket{
		{ConditionID: "a", ClobTokenIDs: stringList{"t1", "t1n"}, Active: true, VolumeNum: 5_000},
		{ConditionID: "b", ClobTokenIDs: stringList{"t2", "t2n"}, Active: true, VolumeNum: 50_000},
		{ConditionID: "c", ClobTokenIDs: stringList{"t3", "t3n"}, Active: true, Closed: true, VolumeNum: 90_000},
		{ConditionID: "d", ClobTokenIDs: stringList{"t4", "t4n"}, Active: false, VolumeNum: 90_000},
		{ConditionID: "e", Active: true, VolumeNum: 90_000}, // no token IDs
		{ConditionID: "f", ClobTokenIDs: stringList{"t6", "t6n"}, Active: true, VolumeNum: 70_000},
	}

	got := FilterMarkets(markets, 10_000)
	if len(got) != 2 {
		t.Fatalf("filtered = %d markets, want 2", len(got))
	}
	// Sorted by volume descending.
	if got[0].ConditionID != "f" || got[1].ConditionID != "b" {
		t.Errorf("order = [%s, %s], want [f, b]", got[0].ConditionID, got[1].ConditionID)
	}
}

func TestDiscoverMarketsBuildsConfigs(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"conditionId": "a", "question": "Q1?", "clobTokenIds": ["yes_a", "no_a"], "active": true, "closed": false, "volumeNum": 20000},
			{"conditionId": "b", "question": "Q2?", "clobTokenIds": "[\"yes_b\",\"no_b\"]", "active": true, "closed": false, "volumeNum": 80000},
			{"conditionId": "c", "question": "Q3?", "clobTokenIds": ["yes_c", "no_c"], "active": true, "closed": false, "volumeNum": 500}
		]`)
	}))
	defer srv.Close()

	client := NewGammaClient(srv.URL, testLogger())
	cfgs, err := client.DiscoverMarkets(context.Background(), &config.AutoDiscoverConfig{
		MinVolume:    10_000,
		MaxMarkets:   5,
		SpreadBps:    400,
		Size:         decimal.RequireFromString("10"),
		MaxInventory: decimal.RequireFromString("50"),
		SkewFactor:   decimal.RequireFromString("0.001"),
	})
	if err != nil {
		t.Fatalf("DiscoverMarkets: %v", err)
	}

	if len(cfgs) != 2 {
		t.Fatalf("discovered = %d configs, want 2", len(cfgs))
	}
	if cfgs[0].TokenID != "yes_b" {
		t.Errorf("first token = %q, want yes_b (highest volume)", cfgs[0].TokenID)
	}
	if cfgs[0].SpreadBps != 400 {
		t.Errorf("spread_bps = %d, want 400", cfgs[0].SpreadBps)
	}
	if !cfgs[0].Size.Equal(decimal.RequireFromString("10")) {
		t.Errorf("size = %s, want 10", cfgs[0].Size)
	}
}

func TestTruncateQuestion(t *testing.T) {
	t.Parallel()
	if got := truncateQuestion("short", 50); got != "short" {
		t.Errorf("got %q", got)
	}
	long := "this question is long enough that it will be truncated somewhere"
	got := truncateQuestion(long, 20)
	if len(got) != 20 || got[17:] != "..." {
		t.Errorf("got %q (len %d)", got, len(got))
	}
}
