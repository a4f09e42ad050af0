package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"skyflip/internal/detector"
	"skyflip/internal/models"
	"skyflip/internal/repository/memory"
)

type fakeFetcher struct {
	snap    *models.UnifiedFlipInputSnapshot
	err     error
	calls   int
	onFetch func(ctx context.Context)
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context) (*models.UnifiedFlipInputSnapshot, error) {
	f.calls++
	if f.onFetch != nil {
		f.onFetch(ctx)
	}
	return f.snap, f.err
}

// conflictGate lets Peek through but fails every commit for one source.
type conflictGate struct {
	*detector.ChangeDetector
	source string
}

func (g conflictGate) CheckAndUpdate(ctx context.Context, sourceKey, newHash string) (detector.Result, error) {
	if sourceKey == g.source {
		return detector.Unchanged, models.ErrStoreConflict
	}
	return g.ChangeDetector.CheckAndUpdate(ctx, sourceKey, newHash)
}

func newCycleService(f MarketDataFetcher, store *memory.Store) *SnapshotCycleService {
	return &SnapshotCycleService{
		Fetcher:       f,
		Detector:      detector.New(store, nil),
		AuctionShards: 4,
	}
}

func profitableSnapshot() *models.UnifiedFlipInputSnapshot {
	return models.NewSnapshot(
		map[string]models.BazaarQuote{
			"ENCHANTED_DIAMOND": {BuyPrice: 100, SellPrice: 110},
			"WHEAT":             {BuyPrice: 100, SellPrice: 101},
			"COAL":              {BuyPrice: 10, SellPrice: 12},
		},
		map[string]models.AuctionQuote{
			"HYPERION": {LowestStartingBid: 100, AverageObservedPrice: 105, SampleSize: 3},
			"ASPECT":   {LowestStartingBid: 100, AverageObservedPrice: 104.9, SampleSize: 5},
		},
	)
}

func TestRunCycle_UnchangedBazaarYieldsNoCandidates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newCycleService(&fakeFetcher{snap: profitableSnapshot()}, store)

	first, err := svc.RunCycle(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := countKind(first.Candidates, models.QuoteKindBazaar); got != 2 {
		t.Fatalf("first bazaar candidates=%d want=2", got)
	}
	if got := countKind(first.Candidates, models.QuoteKindAuction); got != 1 {
		t.Fatalf("first auction candidates=%d want=1", got)
	}

	second, err := svc.RunCycle(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(second.Candidates) != 0 {
		t.Fatalf("second candidates=%d want=0", len(second.Candidates))
	}
	for _, src := range second.Sources {
		if src.Changed {
			t.Fatalf("source %s changed on identical snapshot", src.SourceKey)
		}
	}
}

func TestRunCycle_CandidateOrder(t *testing.T) {
	svc := newCycleService(&fakeFetcher{snap: profitableSnapshot()}, memory.New())
	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := []string{"COAL", "ENCHANTED_DIAMOND", "HYPERION"}
	if len(res.Candidates) != len(want) {
		t.Fatalf("candidates=%d want=%d", len(res.Candidates), len(want))
	}
	for i, c := range res.Candidates {
		if c.ItemID != want[i] {
			t.Fatalf("candidates[%d]=%s want=%s", i, c.ItemID, want[i])
		}
	}
	if res.Candidates[2].SourceKey != AuctionSourceKey("HYPERION", 4) {
		t.Fatalf("source=%s want=%s", res.Candidates[2].SourceKey, AuctionSourceKey("HYPERION", 4))
	}
	if res.Candidates[0].Bazaar == nil || res.Candidates[0].Auction != nil {
		t.Fatalf("bazaar candidate carries wrong quote: %#v", res.Candidates[0])
	}
	if res.Sources[0].SourceKey != BazaarSourceKey || len(res.Sources) != 5 {
		t.Fatalf("sources=%#v", res.Sources)
	}
}

func TestRunCycle_EncodingErrorIsolated(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	snap := models.NewSnapshot(
		map[string]models.BazaarQuote{"COAL": {BuyPrice: 10, SellPrice: 12}},
		map[string]models.AuctionQuote{"BROKEN": {LowestStartingBid: 100, AverageObservedPrice: math.NaN(), SampleSize: 4}},
	)
	svc := newCycleService(&fakeFetcher{snap: snap}, store)

	res, err := svc.RunCycle(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].ItemID != "COAL" {
		t.Fatalf("candidates=%#v want COAL only", res.Candidates)
	}
	key := AuctionSourceKey("BROKEN", 4)
	srcErr := res.SourceErrors[key]
	if !errors.Is(srcErr, models.ErrEncoding) {
		t.Fatalf("source error=%v want ErrEncoding", srcErr)
	}
	var encErr *models.EncodingError
	if !errors.As(srcErr, &encErr) || encErr.ItemID != "BROKEN" {
		t.Fatalf("encoding error=%#v", encErr)
	}
	if len(res.SourceErrors) != 1 {
		t.Fatalf("source errors=%v want one", res.SourceErrors)
	}
	if rec, _ := store.GetSourceHash(ctx, key); rec != nil {
		t.Fatalf("failed source committed: %#v", rec)
	}
	if rec, _ := store.GetSourceHash(ctx, BazaarSourceKey); rec == nil {
		t.Fatalf("bazaar hash not committed")
	}
}

func TestRunCycle_SkipsWhenRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{
		snap: models.NewSnapshot(nil, nil),
		onFetch: func(ctx context.Context) {
			close(started)
			<-release
		},
	}
	svc := newCycleService(f, memory.New())

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunCycle(context.Background())
		done <- err
	}()
	<-started

	if !svc.Running() {
		t.Fatalf("Running()=false while a cycle is in flight")
	}
	if _, err := svc.RunCycle(context.Background()); !errors.Is(err, models.ErrCycleInProgress) {
		t.Fatalf("err=%v want ErrCycleInProgress", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first cycle err=%v", err)
	}
	if f.calls != 1 {
		t.Fatalf("fetch calls=%d want=1", f.calls)
	}
	if svc.Running() {
		t.Fatalf("Running()=true after cycle finished")
	}
}

func TestRunCycle_FetchFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newCycleService(&fakeFetcher{err: errors.New("502 bad gateway")}, store)

	res, err := svc.RunCycle(ctx)
	if !errors.Is(err, models.ErrFetchFailure) {
		t.Fatalf("err=%v want ErrFetchFailure", err)
	}
	var fe *models.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err=%T want *FetchError", err)
	}
	if res == nil || len(res.Candidates) != 0 || len(res.Sources) != 0 {
		t.Fatalf("result=%#v", res)
	}
	recs, _ := store.ListSourceHashes(ctx)
	if len(recs) != 0 {
		t.Fatalf("store has %d records after failed fetch", len(recs))
	}
}

func TestRunCycle_CancelledBeforeCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.New()
	f := &fakeFetcher{
		snap:    profitableSnapshot(),
		onFetch: func(context.Context) { cancel() },
	}
	svc := newCycleService(f, store)

	res, err := svc.RunCycle(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if len(res.Candidates) != 0 {
		t.Fatalf("candidates=%d want=0", len(res.Candidates))
	}
	recs, _ := store.ListSourceHashes(context.Background())
	if len(recs) != 0 {
		t.Fatalf("store has %d records after cancellation", len(recs))
	}
}

func TestRunCycle_StoreConflictDropsCandidates(t *testing.T) {
	store := memory.New()
	svc := newCycleService(&fakeFetcher{snap: profitableSnapshot()}, store)
	svc.Detector = conflictGate{ChangeDetector: detector.New(store, nil), source: BazaarSourceKey}

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !errors.Is(res.SourceErrors[BazaarSourceKey], models.ErrStoreConflict) {
		t.Fatalf("bazaar err=%v want ErrStoreConflict", res.SourceErrors[BazaarSourceKey])
	}
	if got := countKind(res.Candidates, models.QuoteKindBazaar); got != 0 {
		t.Fatalf("bazaar candidates=%d want=0", got)
	}
	if got := countKind(res.Candidates, models.QuoteKindAuction); got != 1 {
		t.Fatalf("auction candidates=%d want=1", got)
	}
}

func TestRunCycle_EmptySnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newCycleService(&fakeFetcher{snap: models.NewSnapshot(nil, nil)}, store)

	first, err := svc.RunCycle(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(first.Sources) != 5 || len(first.Candidates) != 0 {
		t.Fatalf("sources=%d candidates=%d", len(first.Sources), len(first.Candidates))
	}
	second, err := svc.RunCycle(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for _, src := range second.Sources {
		if src.Changed {
			t.Fatalf("empty source %s reported changed on repeat", src.SourceKey)
		}
	}
	recs, _ := store.ListSourceHashes(ctx)
	if len(recs) != 5 {
		t.Fatalf("records=%d want=5", len(recs))
	}
}

func TestAuctionSourceKey_StableAndBounded(t *testing.T) {
	a := AuctionSourceKey("HYPERION", 16)
	if a != AuctionSourceKey("HYPERION", 16) {
		t.Fatalf("shard key not stable")
	}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[AuctionSourceKey(string(rune('A'+i%26))+string(rune('a'+i/26)), 4)] = true
	}
	for key := range seen {
		switch key {
		case "auction-00", "auction-01", "auction-02", "auction-03":
		default:
			t.Fatalf("unexpected shard key %s", key)
		}
	}
}

func countKind(items []models.FlipCandidate, kind models.QuoteKind) int {
	n := 0
	for _, it := range items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}
