// eutrader is a market-making engine for Polymarket-style binary
// prediction markets.
//
// Architecture:
//
//	main.go                 — CLI: run / discover subcommands, signal handling
//	config/config.go        — TOML configuration with exact decimal decoding
//	feed/feed.go            — polls CLOB orderbooks, broadcasts snapshots
//	feed/gamma.go           — market discovery via the Gamma API
//	strategy/quoter.go      — inventory-skewed two-sided quotes on a 0.01 tick
//	strategy/risk.go        — position, exposure and unrealized-loss limits
//	engine/paper.go         — simulated execution against live top-of-book
//	engine/manager.go       — the quote / risk / reconcile loop
//	dashboard/dashboard.go  — shared state for the optional UI
//	api/server.go           — HTTP/WebSocket dashboard + Prometheus metrics
//
// How it makes money:
//
//	The engine captures the bid-ask spread. It posts a buy below and a sell
//	above the midpoint; when both sides fill it earns the width. Inventory
//	skew shifts both quotes against the current position so the book keeps
//	pulling the position back toward flat.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"eutrader/internal/api"
	"eutrader/internal/config"
	"eutrader/internal/dashboard"
	"eutrader/internal/engine"
	"eutrader/internal/feed"
)

const logFileName = "eutrader.log"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "discover":
		err = discoverCmd(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `eutrader — Polymarket market-making engine

Usage:
  eutrader run      [-config path] [-mode paper|live] [-ui]
  eutrader discover [-min-volume N] [-limit N]

Commands:
  run       start the market-making engine
  discover  list active markets sorted by volume
`)
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to the TOML configuration file")
	modeOverride := fs.String("mode", "", "override the execution mode from the config file (paper|live)")
	ui := fs.Bool("ui", false, "enable the dashboard server and log to "+logFileName)
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if *modeOverride != "" {
		cfg.Mode = config.Mode(*modeOverride)
		if cfg.Mode != config.ModePaper && cfg.Mode != config.ModeLive {
			return fmt.Errorf("invalid -mode %q", *modeOverride)
		}
	}
	if *ui {
		cfg.Dashboard.Enabled = true
		if cfg.Dashboard.Port == 0 {
			cfg.Dashboard.Port = 8080
		}
	}

	logger, closeLog, err := setupLogger(cfg.Logging, cfg.Dashboard.Enabled)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	// Live execution is not implemented; refuse before anything starts.
	if cfg.Mode == config.ModeLive {
		return fmt.Errorf("live mode is not yet implemented; use -mode paper for now")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auto-discover markets when none are configured manually.
	if len(cfg.Markets) == 0 {
		logger.Info("no manual markets configured, running auto-discovery...")
		gamma := feed.NewGammaClient("", logger)
		discovered, err := gamma.DiscoverMarkets(ctx, cfg.AutoDiscover)
		if err != nil {
			return fmt.Errorf("auto-discovery failed: %w", err)
		}
		if len(discovered) == 0 {
			return fmt.Errorf("auto-discovery found no markets matching criteria")
		}
		cfg.Markets = discovered
	}

	logBanner(logger, cfg)

	tokenIDs := make([]string, 0, len(cfg.Markets))
	for _, m := range cfg.Markets {
		tokenIDs = append(tokenIDs, m.TokenID)
	}

	var sink *dashboard.Sink
	if cfg.Dashboard.Enabled {
		sink = dashboard.NewSink(string(cfg.Mode))
	}

	executor := engine.NewPaperExecutor(cfg.Journal.Path, logger)
	manager := engine.NewOrderManager(executor, *cfg, sink, logger)
	feedMgr := feed.NewFeedManagerWithInterval(tokenIDs, cfg.Risk.QuoteRefreshIntervalMs, logger)
	snapshots := feedMgr.Subscribe()

	logger.Info("starting paper trading loop, press Ctrl+C to stop")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return feedMgr.Run(ctx) })
	g.Go(func() error {
		manager.Run(ctx, snapshots)
		return nil
	})
	if cfg.Dashboard.Enabled {
		server := api.NewServer(cfg.Dashboard, sink, logger)
		g.Go(func() error { return server.Run(ctx) })
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("eutrader shut down cleanly")
	return nil
}

func discoverCmd(args []string) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	minVolume := fs.Float64("min-volume", 10_000, "minimum 24h volume in USD to show")
	limit := fs.Int("limit", 20, "maximum number of markets to display")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("discovering active Polymarket markets", "min_volume", *minVolume)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := feed.NewGammaClient("", logger)
	markets, err := client.FetchMarkets(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch markets from Gamma API: %w", err)
	}

	filtered := feed.FilterMarkets(markets, *minVolume)
	if len(filtered) > *limit {
		filtered = filtered[:*limit]
	}
	if len(filtered) == 0 {
		logger.Info("no markets found matching criteria")
		return nil
	}

	fmt.Printf("\n%-60s %12s %s\n", "Market", "Volume ($)", "YES Token ID")
	fmt.Println(strings.Repeat("-", 120))
	for _, m := range filtered {
		question := m.Question
		if len(question) > 57 {
			question = question[:57] + "..."
		}
		fmt.Printf("%-60s %12.0f %s\n", question, m.VolumeNum, m.YesTokenID())
	}
	fmt.Printf("\nFound %d markets. Copy a token_id into config.toml or use [auto_discover].\n\n", len(filtered))

	return nil
}

// setupLogger builds the process logger. When the UI is enabled, logs go to
// a file so they do not fight the dashboard output on the terminal.
func setupLogger(cfg config.LoggingConfig, uiEnabled bool) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stdout
	closeLog := func() {}

	if uiEnabled {
		f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closeLog, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logBanner(logger *slog.Logger, cfg *config.Config) {
	logger.Info("========================================")
	logger.Info("  eutrader — Polymarket Market Maker")
	logger.Info("========================================")
	logger.Info("engine settings",
		"mode", cfg.Mode,
		"markets", len(cfg.Markets),
		"max_pos_per_market", cfg.Risk.MaxPositionPerMarket,
		"max_exposure", cfg.Risk.MaxTotalExposure,
		"max_unrealized_loss", cfg.Risk.MaxUnrealizedLoss,
		"refresh_ms", cfg.Risk.QuoteRefreshIntervalMs,
	)
	for _, m := range cfg.Markets {
		logger.Info("market",
			"name", m.Name,
			"spread_bps", m.SpreadBps,
			"size", m.Size,
			"max_inventory", m.MaxInventory,
		)
	}
	logger.Info("========================================")
}
