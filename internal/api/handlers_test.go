package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"eutrader/internal/dashboard"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	h := NewHandlers(dashboard.NewSink("paper"), NewHub(testLogger()), testLogger())

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestHandleSnapshotReturnsState(t *testing.T) {
	t.Parallel()
	sink := dashboard.NewSink("paper")
	sink.UpdateMarket(dashboard.MarketRow{
		Name:        "Test",
		TokenID:     "tok1",
		RealizedPnL: decimal.RequireFromString("1.25"),
		FillCount:   3,
	})
	h := NewHandlers(sink, NewHub(testLogger()), testLogger())

	rec := httptest.NewRecorder()
	h.HandleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var state struct {
		Mode    string `json:"mode"`
		Markets map[string]struct {
			Name      string `json:"name"`
			FillCount uint64 `json:"fill_count"`
		} `json:"markets"`
		TotalFills uint64 `json:"total_fills"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if state.Mode != "paper" {
		t.Errorf("mode = %q, want paper", state.Mode)
	}
	if state.Markets["tok1"].Name != "Test" {
		t.Errorf("market name = %q, want Test", state.Markets["tok1"].Name)
	}
	if state.TotalFills != 3 {
		t.Errorf("total fills = %d, want 3", state.TotalFills)
	}
}

func TestHandleSnapshotWithNilSink(t *testing.T) {
	t.Parallel()
	h := NewHandlers(nil, NewHub(testLogger()), testLogger())

	rec := httptest.NewRecorder()
	h.HandleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even without a sink", rec.Code)
	}
}
