package feed

import (
	"testing"

	"github.com/shopspring/decimal"
)

func makeBook(bids, asks [][2]string) *BookResponse {
	book := &BookResponse{
		Market:  "test_market",
		AssetID: "test_asset",
	}
	for _, b := range bids {
		book.Bids = append(book.Bids, PriceLevel{Price: b[0], Size: b[1]})
	}
	for _, a := range asks {
		book.Asks = append(book.Asks, PriceLevel{Price: a[0], Size: a[1]})
	}
	return book
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSnapshotFromValidBook(t *testing.T) {
	t.Parallel()
	book := makeBook(
		[][2]string{{"0.48", "100"}, {"0.47", "50"}},
		[][2]string{{"0.52", "80"}, {"0.53", "60"}},
	)
	snap := ToSnapshot("tok1", book)
	if snap == nil {
		t.Fatal("expected a snapshot")
	}

	if !snap.BestBid.Equal(dec("0.48")) {
		t.Errorf("best bid = %s, want 0.48", snap.BestBid)
	}
	if !snap.BestAsk.Equal(dec("0.52")) {
		t.Errorf("best ask = %s, want 0.52", snap.BestAsk)
	}
	if !snap.Midpoint.Equal(dec("0.50")) {
		t.Errorf("midpoint = %s, want 0.50", snap.Midpoint)
	}
	if !snap.Spread.Equal(dec("0.04")) {
		t.Errorf("spread = %s, want 0.04", snap.Spread)
	}
	if snap.TokenID != "tok1" {
		t.Errorf("token = %q, want tok1", snap.TokenID)
	}
}

func TestSnapshotPicksExtremesFromUnsortedLevels(t *testing.T) {
	t.Parallel()
	book := makeBook(
		[][2]string{{"0.40", "10"}, {"0.48", "100"}, {"0.45", "50"}},
		[][2]string{{"0.60", "10"}, {"0.52", "80"}, {"0.55", "60"}},
	)
	snap := ToSnapshot("tok1", book)
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if !snap.BestBid.Equal(dec("0.48")) || !snap.BestAsk.Equal(dec("0.52")) {
		t.Errorf("best = (%s, %s), want (0.48, 0.52)", snap.BestBid, snap.BestAsk)
	}
}

func TestSnapshotNilForEmptyBids(t *testing.T) {
	t.Parallel()
	book := makeBook(nil, [][2]string{{"0.52", "80"}})
	if snap := ToSnapshot("tok1", book); snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}
}

func TestSnapshotNilForEmptyAsks(t *testing.T) {
	t.Parallel()
	book := makeBook([][2]string{{"0.48", "100"}}, nil)
	if snap := ToSnapshot("tok1", book); snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}
}

func TestSnapshotNilForCrossedBook(t *testing.T) {
	t.Parallel()
	book := makeBook([][2]string{{"0.55", "100"}}, [][2]string{{"0.50", "80"}})
	if snap := ToSnapshot("tok1", book); snap != nil {
		t.Fatalf("expected nil snapshot for crossed book, got %+v", snap)
	}
}

func TestSnapshotSkipsUnparseableLevels(t *testing.T) {
	t.Parallel()
	book := makeBook(
		[][2]string{{"garbage", "1"}, {"0.48", "100"}},
		[][2]string{{"0.52", "80"}},
	)
	snap := ToSnapshot("tok1", book)
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if !snap.BestBid.Equal(dec("0.48")) {
		t.Errorf("best bid = %s, want 0.48", snap.BestBid)
	}
}
