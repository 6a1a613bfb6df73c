package api

import (
	"time"

	"eutrader/internal/dashboard"
)

// DashboardEvent is the wrapper for all events pushed over the WebSocket.
type DashboardEvent struct {
	Type      string      `json:"type"`      // "snapshot" or "fill"
	Timestamp time.Time   `json:"timestamp"` // event time
	Data      interface{} `json:"data"`      // event-specific payload
}

// NewSnapshotEvent wraps a full dashboard state.
func NewSnapshotEvent(state dashboard.State) DashboardEvent {
	return DashboardEvent{
		Type:      "snapshot",
		Timestamp: time.Now().UTC(),
		Data:      state,
	}
}

// NewFillEvent wraps a single fill row.
func NewFillEvent(fill dashboard.FillRow) DashboardEvent {
	return DashboardEvent{
		Type:      "fill",
		Timestamp: time.Now().UTC(),
		Data:      fill,
	}
}
