package hypixel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type venueStub struct {
	mu        sync.Mutex
	pages     map[string]string
	failPage  string
	bazaar    string
	requested []string
	apiKeys   []string
}

func (v *venueStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	v.apiKeys = append(v.apiKeys, r.Header.Get("API-Key"))
	v.mu.Unlock()
	switch r.URL.Path {
	case "/v2/skyblock/bazaar":
		if v.bazaar == "" {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(v.bazaar))
	case "/v2/skyblock/auctions":
		page := r.URL.Query().Get("page")
		v.mu.Lock()
		v.requested = append(v.requested, page)
		v.mu.Unlock()
		if page == v.failPage {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		body, ok := v.pages[page]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}

const bazaarBody = `{"success":true,"lastUpdated":1,"products":{
	"COAL":{"product_id":"COAL","quick_status":{"productId":"COAL","buyPrice":10,"sellPrice":12.5}},
	"WHEAT":{"product_id":"","quick_status":{"buyPrice":3,"sellPrice":3.01}}}}`

func newStub() *venueStub {
	return &venueStub{
		bazaar: bazaarBody,
		pages: map[string]string{
			"0": `{"success":true,"page":0,"totalPages":2,"auctions":[
				{"uuid":"a","item_name":"Hyperion","starting_bid":100,"bin":true},
				{"uuid":"b","item_name":"§6Hyperion ✪✪","starting_bid":120,"bin":true},
				{"uuid":"c","item_name":"Hyperion","starting_bid":1,"bin":false},
				{"uuid":"d","item_name":"Aspect of the End","starting_bid":50,"bin":true,"claimed":true}]}`,
			"1": `{"success":true,"page":1,"totalPages":2,"auctions":[
				{"uuid":"e","item_name":"Hyperion","starting_bid":95,"bin":true},
				{"uuid":"f","item_name":"Aspect of the End","starting_bid":40,"bin":true}]}`,
		},
	}
}

type upperResolver struct{}

func (upperResolver) Resolve(name string) string {
	switch name {
	case "Hyperion", "§6Hyperion ✪✪":
		return "HYPERION"
	case "Aspect of the End":
		return "ASPECT_OF_THE_END"
	}
	return ""
}

func TestFetchSnapshot(t *testing.T) {
	stub := newStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := &Fetcher{
		Client:   NewClient(srv.URL, "secret", 5*time.Second),
		Resolver: upperResolver{},
	}
	snap, err := f.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	bz := snap.BazaarQuotes()
	if len(bz) != 2 || bz["COAL"].SellPrice != 12.5 || bz["WHEAT"].BuyPrice != 3 {
		t.Fatalf("bazaar=%#v", bz)
	}

	au := snap.AuctionQuotes()
	hyp, ok := au["HYPERION"]
	if !ok {
		t.Fatalf("missing HYPERION in %#v", au)
	}
	if hyp.LowestStartingBid != 95 || hyp.SampleSize != 3 {
		t.Fatalf("hyperion=%#v", hyp)
	}
	if want := (100.0 + 120.0 + 95.0) / 3; hyp.AverageObservedPrice != want {
		t.Fatalf("avg=%v want=%v", hyp.AverageObservedPrice, want)
	}
	aote := au["ASPECT_OF_THE_END"]
	if aote.SampleSize != 1 || aote.LowestStartingBid != 40 {
		t.Fatalf("aote=%#v", aote)
	}
	for _, k := range stub.apiKeys {
		if k != "secret" {
			t.Fatalf("api key header=%q want=secret", k)
		}
	}
}

func TestFetchSnapshot_RespectsMaxAuctionPages(t *testing.T) {
	stub := newStub()
	stub.pages["0"] = `{"success":true,"page":0,"totalPages":9,"auctions":[]}`
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := &Fetcher{Client: NewClient(srv.URL, "", time.Second), MaxAuctionPages: 2}
	if _, err := f.FetchSnapshot(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(stub.requested) != 2 {
		t.Fatalf("requested pages=%v want two", stub.requested)
	}
}

func TestFetchSnapshot_UpstreamErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*venueStub)
		status int
	}{
		{name: "bazaar 502", mutate: func(v *venueStub) { v.bazaar = "" }, status: http.StatusBadGateway},
		{name: "page 500", mutate: func(v *venueStub) { v.failPage = "1" }, status: http.StatusInternalServerError},
		{name: "first page missing", mutate: func(v *venueStub) { delete(v.pages, "0") }, status: http.StatusNotFound},
		{name: "success false", mutate: func(v *venueStub) {
			v.pages["0"] = `{"success":false,"cause":"Invalid page"}`
		}},
	}
	for _, tc := range cases {
		stub := newStub()
		tc.mutate(stub)
		srv := httptest.NewServer(stub)
		f := &Fetcher{Client: NewClient(srv.URL, "", time.Second)}
		snap, err := f.FetchSnapshot(context.Background())
		srv.Close()
		if err == nil || snap != nil {
			t.Fatalf("%s: snap=%v err=%v want error", tc.name, snap, err)
		}
		if tc.status != 0 {
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tc.status {
				t.Fatalf("%s: err=%v want status %d", tc.name, err, tc.status)
			}
		}
	}
}

func TestFetchSnapshot_ShrunkAuctionSetKeepsEarlierPages(t *testing.T) {
	stub := newStub()
	delete(stub.pages, "1")
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := &Fetcher{Client: NewClient(srv.URL, "", time.Second), Resolver: upperResolver{}}
	snap, err := f.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := len(snap.BazaarQuotes()); got != 2 {
		t.Fatalf("bazaar=%d want=2", got)
	}
	hyp := snap.AuctionQuotes()["HYPERION"]
	if hyp.LowestStartingBid != 100 || hyp.SampleSize != 2 {
		t.Fatalf("hyperion=%#v", hyp)
	}
	if _, ok := snap.AuctionQuotes()["ASPECT_OF_THE_END"]; ok {
		t.Fatalf("claimed-only item should be absent")
	}
}

func TestGetAuctions_NotFoundIsPageNotFound(t *testing.T) {
	srv := httptest.NewServer(newStub())
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).GetAuctions(context.Background(), 7)
	if !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("err=%v want ErrPageNotFound", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("err=%v want wrapped 404", err)
	}
}

func TestAggregateAuctions_DefaultResolver(t *testing.T) {
	pages := []*AuctionsResponse{{Auctions: []Auction{
		{ItemName: "Ender Bow", StartingBid: 10, BIN: true},
		{ItemName: "Ender Bow", StartingBid: 30, BIN: true},
		{ItemName: "  ", StartingBid: 30, BIN: true},
	}}, nil}
	got := AggregateAuctions(pages, nil)
	q, ok := got["ENDER_BOW"]
	if !ok || len(got) != 1 {
		t.Fatalf("got=%#v", got)
	}
	if q.LowestStartingBid != 10 || q.AverageObservedPrice != 20 || q.SampleSize != 2 {
		t.Fatalf("quote=%#v", q)
	}
}
