package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"eutrader/internal/config"
)

// DefaultGammaBaseURL is the public Polymarket Gamma API endpoint.
const DefaultGammaBaseURL = "https://gamma-api.polymarket.com"

// GammaToken is a token within a Gamma market (Yes / No outcome).
// Used by older API responses that nest token objects.
type GammaToken struct {
	TokenID string          `json:"token_id"`
	Outcome string          `json:"outcome"`
	Price   decimal.Decimal `json:"price"`
}

// GammaMarket is a market returned by the Gamma API.
type GammaMarket struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	// Legacy nested token objects (may not always be present).
	Tokens []GammaToken `json:"tokens"`
	// CLOB token IDs: [Yes token ID, No token ID]. The API serves this
	// either as a native JSON array or as a stringified array.
	ClobTokenIDs stringList `json:"clobTokenIds"`
	Active       bool       `json:"active"`
	Closed       bool       `json:"closed"`
	// Volume is only a sort key, so float64 is fine here.
	VolumeNum float64 `json:"volumeNum"`
}

// YesTokenID returns the CLOB token ID for the YES outcome, preferring
// clobTokenIds over the legacy tokens list. Index 0 being the Yes token is
// a convention inherited from the upstream API.
func (m *GammaMarket) YesTokenID() string {
	if len(m.ClobTokenIDs) > 0 {
		return m.ClobTokenIDs[0]
	}
	if len(m.Tokens) > 0 {
		return m.Tokens[0].TokenID
	}
	return ""
}

// NoTokenID returns the CLOB token ID for the NO outcome.
func (m *GammaMarket) NoTokenID() string {
	if len(m.ClobTokenIDs) > 1 {
		return m.ClobTokenIDs[1]
	}
	if len(m.Tokens) > 1 {
		return m.Tokens[1].TokenID
	}
	return ""
}

// stringList decodes a JSON array of strings that may arrive stringified,
// e.g. "[\"id1\",\"id2\"]".
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("clobTokenIds is neither an array nor a string: %w", err)
	}
	if raw == "" {
		*s = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), (*[]string)(s))
}

// GammaClient discovers markets via the Polymarket Gamma API.
type GammaClient struct {
	http   *resty.Client
	rl     *TokenBucket
	logger *slog.Logger
}

// NewGammaClient creates a Gamma discovery client.
func NewGammaClient(baseURL string, logger *slog.Logger) *GammaClient {
	if baseURL == "" {
		baseURL = DefaultGammaBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &GammaClient{
		http:   client,
		rl:     newGammaBucket(),
		logger: logger.With("component", "gamma"),
	}
}

// FetchMarkets fetches active, order-book-enabled markets.
func (c *GammaClient) FetchMarkets(ctx context.Context) ([]GammaMarket, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var markets []GammaMarket
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"closed":          "false",
			"enableOrderBook": "true",
			"limit":           "100",
		}).
		SetResult(&markets).
		Get("/markets")
	if err != nil {
		return nil, fmt.Errorf("feed: fetch markets: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed: fetch markets: status %d", resp.StatusCode())
	}

	c.logger.Info("fetched markets from Gamma API", "count", len(markets))
	return markets, nil
}

// DiscoverMarkets fetches active markets, filters by minimum volume, sorts
// by volume descending, and returns ready-to-trade market configs built
// from the auto-discover defaults.
func (c *GammaClient) DiscoverMarkets(ctx context.Context, cfg *config.AutoDiscoverConfig) ([]config.MarketConfig, error) {
	markets, err := c.FetchMarkets(ctx)
	if err != nil {
		return nil, err
	}

	candidates := FilterMarkets(markets, cfg.MinVolume)
	if len(candidates) > cfg.MaxMarkets {
		candidates = candidates[:cfg.MaxMarkets]
	}

	configs := make([]config.MarketConfig, 0, len(candidates))
	for _, m := range candidates {
		tokenID := m.YesTokenID()
		c.logger.Info("auto-discovered market",
			"question", m.Question,
			"token_id", tokenID,
			"volume", m.VolumeNum,
		)
		configs = append(configs, config.MarketConfig{
			Name:         truncateQuestion(m.Question, 50),
			TokenID:      tokenID,
			SpreadBps:    cfg.SpreadBps,
			Size:         cfg.Size,
			MaxInventory: cfg.MaxInventory,
			SkewFactor:   cfg.SkewFactor,
		})
	}

	c.logger.Info("auto-discovery complete", "count", len(configs))
	return configs, nil
}

// FilterMarkets keeps active, open markets with a YES token and at least
// minVolume 24h volume, sorted by volume descending. High volume correlates
// with tight books, which is where a maker wants to be.
func FilterMarkets(markets []GammaMarket, minVolume float64) []GammaMarket {
	var out []GammaMarket
	for _, m := range markets {
		if m.Active && !m.Closed && m.VolumeNum >= minVolume && m.YesTokenID() != "" {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VolumeNum > out[j].VolumeNum
	})
	return out
}

func truncateQuestion(q string, max int) string {
	if len(q) <= max {
		return q
	}
	return q[:max-3] + "..."
}
