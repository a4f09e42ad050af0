package models

import (
	"errors"
	"testing"
)

func TestSourceHashRecordEqual_ComparesIDOnly(t *testing.T) {
	a := &SourceHashRecord{ID: "id-1", SourceKey: "bazaar", Hash: "h1"}
	b := &SourceHashRecord{ID: "id-1", SourceKey: "bazaar", Hash: "h2"}
	c := &SourceHashRecord{ID: "id-2", SourceKey: "bazaar", Hash: "h1"}
	if !a.Equal(b) {
		t.Fatalf("same id with different hash should be equal")
	}
	if a.Equal(c) {
		t.Fatalf("different ids with same hash should not be equal")
	}
	var nilRec *SourceHashRecord
	if a.Equal(nil) || !nilRec.Equal(nil) {
		t.Fatalf("nil handling broken")
	}
}

func TestSnapshot_CopiesInputsAndOutputs(t *testing.T) {
	bazaar := map[string]BazaarQuote{"COAL": {BuyPrice: 1, SellPrice: 2}}
	auction := map[string]AuctionQuote{"HYPERION": {LowestStartingBid: 10, AverageObservedPrice: 11, SampleSize: 3}}
	snap := NewSnapshot(bazaar, auction)

	bazaar["COAL"] = BazaarQuote{BuyPrice: 99, SellPrice: 99}
	delete(auction, "HYPERION")
	if got := snap.BazaarQuotes()["COAL"].BuyPrice; got != 1 {
		t.Fatalf("buy=%v want=1", got)
	}
	if _, ok := snap.AuctionQuotes()["HYPERION"]; !ok {
		t.Fatalf("auction quote lost after caller mutation")
	}

	out := snap.BazaarQuotes()
	out["WHEAT"] = BazaarQuote{}
	if snap.Len() != 2 {
		t.Fatalf("len=%d want=2", snap.Len())
	}

	var empty *UnifiedFlipInputSnapshot
	if empty.Len() != 0 || len(empty.BazaarQuotes()) != 0 || len(empty.AuctionQuotes()) != 0 {
		t.Fatalf("nil snapshot should read as empty")
	}
}

func TestFetchError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := error(&FetchError{Err: cause})
	if !errors.Is(err, ErrFetchFailure) || !errors.Is(err, cause) {
		t.Fatalf("err=%v does not unwrap to sentinel and cause", err)
	}
	if errors.Is(err, ErrEncoding) {
		t.Fatalf("fetch error matched ErrEncoding")
	}
}
