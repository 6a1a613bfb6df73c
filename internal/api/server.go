// Package api runs the optional HTTP/WebSocket server behind the dashboard.
//
// Routes:
//
//	/health       liveness probe
//	/api/snapshot current dashboard state as JSON
//	/ws           event stream (fills + periodic snapshots)
//	/metrics      Prometheus exposition
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eutrader/internal/config"
	"eutrader/internal/dashboard"
)

// snapshotPeriod is how often the full state is pushed to WS clients.
const snapshotPeriod = time.Second

// Server runs the HTTP/WebSocket API for the dashboard.
type Server struct {
	cfg      config.DashboardConfig
	sink     *dashboard.Sink
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new API server over the given sink.
func NewServer(cfg config.DashboardConfig, sink *dashboard.Sink, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(sink, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		sink:     sink,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Run serves until ctx is cancelled, pushing periodic snapshots to all
// connected WebSocket clients.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run()
	go s.pushSnapshots(ctx)

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("dashboard server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("stopping dashboard server")
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// pushSnapshots periodically broadcasts the full state plus any fills that
// arrived since the previous tick.
func (s *Server) pushSnapshots(ctx context.Context) {
	ticker := time.NewTicker(snapshotPeriod)
	defer ticker.Stop()

	var lastTotal uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := s.sink.Snapshot()
			if fresh := state.TotalFills - lastTotal; fresh > 0 {
				fills := state.RecentFills
				if uint64(len(fills)) > fresh {
					fills = fills[uint64(len(fills))-fresh:]
				}
				for _, f := range fills {
					s.hub.BroadcastEvent(NewFillEvent(f))
				}
				lastTotal = state.TotalFills
			}
			s.hub.BroadcastEvent(NewSnapshotEvent(state))
		}
	}
}
