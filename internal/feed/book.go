// Package feed provides market data for the engine: the CLOB orderbook
// polling client, Gamma market discovery, and the snapshot broadcast that
// feeds the order manager.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"eutrader/pkg/types"
)

// DefaultCLOBBaseURL is the public Polymarket CLOB REST endpoint.
const DefaultCLOBBaseURL = "https://clob.polymarket.com"

// PriceLevel is a single bid or ask level in the order book.
// Price and Size are strings because the CLOB API returns them as strings
// to preserve decimal precision.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookResponse is the REST response from GET /book for a single token.
type BookResponse struct {
	Market  string       `json:"market"`
	AssetID string       `json:"asset_id"`
	Bids    []PriceLevel `json:"bids"`
	Asks    []PriceLevel `json:"asks"`
}

// BookClient fetches orderbooks from the CLOB REST API.
type BookClient struct {
	http   *resty.Client
	rl     *TokenBucket
	logger *slog.Logger
}

// NewBookClient creates a rate-limited CLOB book client.
func NewBookClient(baseURL string, logger *slog.Logger) *BookClient {
	if baseURL == "" {
		baseURL = DefaultCLOBBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &BookClient{
		http:   client,
		rl:     newBookBucket(),
		logger: logger.With("component", "book-client"),
	}
}

// GetOrderBook fetches the order book for a single token.
func (c *BookClient) GetOrderBook(ctx context.Context, tokenID string) (*BookResponse, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var result BookResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&result).
		Get("/book")
	if err != nil {
		return nil, fmt.Errorf("feed: get book: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed: get book: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Debug("fetched orderbook",
		"token_id", tokenID,
		"bids", len(result.Bids),
		"asks", len(result.Asks),
	)
	return &result, nil
}

// ToSnapshot converts a raw book response into a MarketSnapshot.
//
// Best bid is the maximum bid level and best ask the minimum ask level, so
// the input need not be sorted. Returns nil for empty or crossed books:
// those never reach the manager.
func ToSnapshot(tokenID string, book *BookResponse) *types.MarketSnapshot {
	bestBid, ok := extremeLevel(book.Bids, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) })
	if !ok {
		return nil
	}
	bestAsk, ok := extremeLevel(book.Asks, func(a, b decimal.Decimal) bool { return a.LessThan(b) })
	if !ok {
		return nil
	}

	if bestBid.GreaterThanOrEqual(bestAsk) {
		slog.Warn("crossed book, skipping snapshot",
			"token_id", tokenID,
			"best_bid", bestBid,
			"best_ask", bestAsk,
		)
		return nil
	}

	return &types.MarketSnapshot{
		TokenID:   tokenID,
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		Midpoint:  bestBid.Add(bestAsk).Div(decimal.NewFromInt(2)),
		Spread:    bestAsk.Sub(bestBid),
		Timestamp: time.Now().UTC(),
	}
}

// extremeLevel returns the best price among levels under the given ordering,
// skipping unparseable entries.
func extremeLevel(levels []PriceLevel, better func(a, b decimal.Decimal) bool) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, l := range levels {
		p, err := decimal.NewFromString(l.Price)
		if err != nil {
			continue
		}
		if !found || better(p, best) {
			best = p
			found = true
		}
	}
	return best, found
}
