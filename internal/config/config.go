// Package config defines all configuration for the market-making engine.
// Config is loaded from a TOML file (default: config.toml). Decimal-valued
// fields are decoded through a mapstructure hook so prices and sizes never
// pass through uncontrolled binary floats.
package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Mode selects the execution backend.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// Config is the top-level configuration. Maps directly to the TOML file.
type Config struct {
	Mode         Mode                `mapstructure:"mode"`
	Risk         RiskConfig          `mapstructure:"risk"`
	AutoDiscover *AutoDiscoverConfig `mapstructure:"auto_discover"`
	Markets      []MarketConfig      `mapstructure:"markets"`
	Dashboard    DashboardConfig     `mapstructure:"dashboard"`
	Logging      LoggingConfig       `mapstructure:"logging"`
	Journal      JournalConfig       `mapstructure:"journal"`
}

// MarketConfig describes one token to quote.
type MarketConfig struct {
	Name    string `mapstructure:"name"`
	TokenID string `mapstructure:"token_id"`
	// Spread in basis points (e.g. 300 = 3%).
	SpreadBps uint32 `mapstructure:"spread_bps"`
	// Number of shares to quote per side.
	Size decimal.Decimal `mapstructure:"size"`
	// Max net position before reducing quote size.
	MaxInventory decimal.Decimal `mapstructure:"max_inventory"`
	// How aggressively to skew quotes based on inventory.
	SkewFactor decimal.Decimal `mapstructure:"skew_factor"`
}

// RiskConfig sets hard limits enforced every quote cycle.
type RiskConfig struct {
	MaxPositionPerMarket   decimal.Decimal `mapstructure:"max_position_per_market"`
	MaxTotalExposure       decimal.Decimal `mapstructure:"max_total_exposure"`
	MaxUnrealizedLoss      decimal.Decimal `mapstructure:"max_unrealized_loss"`
	QuoteRefreshIntervalMs uint64          `mapstructure:"quote_refresh_interval_ms"`
}

// RefreshInterval returns the quote refresh interval as a duration,
// defaulting to one second when unset.
func (r RiskConfig) RefreshInterval() time.Duration {
	if r.QuoteRefreshIntervalMs == 0 {
		return time.Second
	}
	return time.Duration(r.QuoteRefreshIntervalMs) * time.Millisecond
}

// AutoDiscoverConfig controls Gamma-based market discovery, used when no
// manual markets are configured.
type AutoDiscoverConfig struct {
	// Minimum 24h volume (USD) to consider a market. Volume is an exogenous
	// sort key from the Gamma API, so float64 is acceptable here.
	MinVolume float64 `mapstructure:"min_volume"`
	// Maximum number of markets to trade simultaneously.
	MaxMarkets int `mapstructure:"max_markets"`
	// Defaults applied to every discovered market.
	SpreadBps    uint32          `mapstructure:"spread_bps"`
	Size         decimal.Decimal `mapstructure:"size"`
	MaxInventory decimal.Decimal `mapstructure:"max_inventory"`
	SkewFactor   decimal.Decimal `mapstructure:"skew_factor"`
}

// DashboardConfig controls the optional dashboard server.
type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JournalConfig sets where simulated fills are appended.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultJournalPath is used when journal.path is not configured.
const DefaultJournalPath = "paper_trades.jsonl"

// Load reads and validates config from a TOML file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath
	}
	if ad := c.AutoDiscover; ad != nil {
		if ad.MinVolume == 0 {
			ad.MinVolume = 10_000
		}
		if ad.MaxMarkets == 0 {
			ad.MaxMarkets = 5
		}
		if ad.SpreadBps == 0 {
			ad.SpreadBps = 400
		}
		if ad.SkewFactor.IsZero() {
			ad.SkewFactor = decimal.RequireFromString("0.001")
		}
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModePaper, ModeLive:
	default:
		return fmt.Errorf("config: mode must be %q or %q, got %q", ModePaper, ModeLive, c.Mode)
	}

	if len(c.Markets) == 0 && c.AutoDiscover == nil {
		return fmt.Errorf("config: no markets configured and auto_discover not enabled; " +
			"add [[markets]] entries or an [auto_discover] section")
	}

	for _, m := range c.Markets {
		if m.SpreadBps == 0 {
			return fmt.Errorf("config: market %q has zero spread", m.Name)
		}
		if m.Size.Sign() <= 0 {
			return fmt.Errorf("config: market %q has non-positive size", m.Name)
		}
		if m.MaxInventory.Sign() < 0 {
			return fmt.Errorf("config: market %q has negative max_inventory", m.Name)
		}
		if m.SkewFactor.Sign() < 0 {
			return fmt.Errorf("config: market %q has negative skew_factor", m.Name)
		}
	}

	if c.Risk.MaxPositionPerMarket.Sign() < 0 ||
		c.Risk.MaxTotalExposure.Sign() < 0 ||
		c.Risk.MaxUnrealizedLoss.Sign() < 0 {
		return fmt.Errorf("config: risk limits must be non-negative")
	}

	return nil
}

// decimalHook converts TOML numbers and strings into decimal.Decimal.
// Floats go through NewFromFloat, which uses the shortest exact
// representation, so "0.001" in the file arrives as exactly 0.001.
func decimalHook() mapstructure.DecodeHookFuncType {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	return func(_, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case float64:
			return decimal.NewFromFloat(v), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("invalid decimal %q: %w", v, err)
			}
			return d, nil
		default:
			return data, nil
		}
	}
}
