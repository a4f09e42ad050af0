package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"skyflip/internal/detector"
	"skyflip/internal/flip"
	"skyflip/internal/hasher"
	"skyflip/internal/models"
)

const (
	BazaarSourceKey      = "bazaar"
	DefaultAuctionShards = 8
	DefaultFetchTimeout  = 20 * time.Second
)

// MarketDataFetcher produces one immutable snapshot of the venue per call.
type MarketDataFetcher interface {
	FetchSnapshot(ctx context.Context) (*models.UnifiedFlipInputSnapshot, error)
}

// ChangeGate is the part of detector.ChangeDetector the cycle depends on.
type ChangeGate interface {
	Peek(ctx context.Context, sourceKey, newHash string) (detector.Result, error)
	CheckAndUpdate(ctx context.Context, sourceKey, newHash string) (detector.Result, error)
}

type SourceOutcome struct {
	SourceKey  string           `json:"source_key"`
	Kind       models.QuoteKind `json:"kind"`
	Quotes     int              `json:"quotes"`
	Hash       string           `json:"hash,omitempty"`
	Changed    bool             `json:"changed"`
	Candidates int              `json:"candidates"`
	Error      string           `json:"error,omitempty"`
}

type CycleResult struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	QuoteCount   int
	Candidates   []models.FlipCandidate
	Sources      []SourceOutcome
	SourceErrors map[string]error
}

// SnapshotCycleService runs one poll cycle: fetch, split into sub-sources, and for each
// changed sub-source evaluate the eligibility policy and commit the new hash.
type SnapshotCycleService struct {
	Fetcher  MarketDataFetcher
	Detector ChangeGate
	Logger   *zap.Logger

	FetchTimeout  time.Duration
	AuctionShards int

	running atomic.Bool
}

// Running reports whether a cycle is currently executing in this process.
func (s *SnapshotCycleService) Running() bool {
	return s != nil && s.running.Load()
}

// RunCycle never waits for an in-flight cycle; a concurrent call gets ErrCycleInProgress.
// A fetch failure aborts the cycle with a *models.FetchError before anything is hashed.
// Per sub-source failures are collected in CycleResult.SourceErrors.
func (s *SnapshotCycleService) RunCycle(ctx context.Context) (*CycleResult, error) {
	if s == nil || s.Fetcher == nil || s.Detector == nil {
		return nil, errors.New("snapshot cycle service not configured")
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, models.ErrCycleInProgress
	}
	defer s.running.Store(false)

	res := &CycleResult{
		ID:           uuid.NewString(),
		StartedAt:    time.Now().UTC(),
		SourceErrors: map[string]error{},
	}
	defer func() { res.FinishedAt = time.Now().UTC() }()

	snap, err := s.fetch(ctx)
	if err != nil {
		s.logWarn("snapshot fetch failed", err)
		return res, err
	}
	res.QuoteCount = snap.Len()

	for _, src := range partition(snap, s.shards()) {
		out, candidates, err := s.processSource(ctx, src)
		if err != nil {
			out.Error = err.Error()
			res.SourceErrors[src.key] = err
			s.logWarn("sub-source skipped", err, zap.String("source", src.key))
		}
		res.Sources = append(res.Sources, out)
		res.Candidates = append(res.Candidates, candidates...)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (s *SnapshotCycleService) fetch(ctx context.Context) (*models.UnifiedFlipInputSnapshot, error) {
	timeout := s.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snap, err := s.Fetcher.FetchSnapshot(fetchCtx)
	if err != nil {
		var fe *models.FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &models.FetchError{Err: err}
	}
	if snap == nil {
		return models.NewSnapshot(nil, nil), nil
	}
	return snap, nil
}

func (s *SnapshotCycleService) processSource(ctx context.Context, src subSource) (SourceOutcome, []models.FlipCandidate, error) {
	out := SourceOutcome{SourceKey: src.key, Kind: src.kind, Quotes: src.size()}

	hash, err := src.hash()
	if err != nil {
		return out, nil, err
	}
	out.Hash = hash

	state, err := s.Detector.Peek(ctx, src.key, hash)
	if err != nil {
		return out, nil, err
	}
	if state == detector.Unchanged {
		return out, nil, nil
	}

	candidates := src.evaluate()

	if err := ctx.Err(); err != nil {
		return out, nil, fmt.Errorf("cycle cancelled before commit: %w", err)
	}
	state, err = s.Detector.CheckAndUpdate(ctx, src.key, hash)
	if err != nil {
		return out, nil, err
	}
	if state == detector.Unchanged {
		// Another writer committed the same hash after our peek; it owns the emission.
		return out, nil, nil
	}
	out.Changed = true
	out.Candidates = len(candidates)
	return out, candidates, nil
}

func (s *SnapshotCycleService) shards() int {
	if s.AuctionShards <= 0 {
		return DefaultAuctionShards
	}
	return s.AuctionShards
}

func (s *SnapshotCycleService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}

// AuctionSourceKey names the auction unit an item belongs to.
func AuctionSourceKey(itemID string, shards int) string {
	if shards <= 0 {
		shards = DefaultAuctionShards
	}
	return auctionShardKey(int(xxhash.Sum64String(itemID) % uint64(shards)))
}

func auctionShardKey(n int) string {
	return fmt.Sprintf("auction-%02d", n)
}

type subSource struct {
	key     string
	kind    models.QuoteKind
	bazaar  map[string]models.BazaarQuote
	auction map[string]models.AuctionQuote
}

// partition returns the bazaar source followed by every auction shard in key order.
// Empty shards are kept so their hashes stay stable across cycles.
func partition(snap *models.UnifiedFlipInputSnapshot, shards int) []subSource {
	out := make([]subSource, 0, shards+1)
	out = append(out, subSource{
		key:    BazaarSourceKey,
		kind:   models.QuoteKindBazaar,
		bazaar: snap.BazaarQuotes(),
	})
	units := make([]subSource, shards)
	for i := range units {
		units[i] = subSource{
			key:     auctionShardKey(i),
			kind:    models.QuoteKindAuction,
			auction: map[string]models.AuctionQuote{},
		}
	}
	for id, q := range snap.AuctionQuotes() {
		n := int(xxhash.Sum64String(id) % uint64(shards))
		units[n].auction[id] = q
	}
	return append(out, units...)
}

func (s subSource) size() int {
	if s.kind == models.QuoteKindBazaar {
		return len(s.bazaar)
	}
	return len(s.auction)
}

func (s subSource) hash() (string, error) {
	if s.kind == models.QuoteKindBazaar {
		return hasher.HashBazaar(s.bazaar)
	}
	return hasher.HashAuctions(s.auction)
}

func (s subSource) evaluate() []models.FlipCandidate {
	var out []models.FlipCandidate
	if s.kind == models.QuoteKindBazaar {
		for _, id := range sortedIDs(s.bazaar) {
			q := s.bazaar[id]
			if !flip.IsBazaarFlipEligible(&q) {
				continue
			}
			out = append(out, models.FlipCandidate{
				ItemID:    id,
				Kind:      models.QuoteKindBazaar,
				SourceKey: s.key,
				EdgeRatio: flip.BazaarEdge(&q),
				Bazaar:    &q,
			})
		}
		return out
	}
	for _, id := range sortedIDs(s.auction) {
		q := s.auction[id]
		if !flip.IsAuctionFlipEligible(&q) {
			continue
		}
		out = append(out, models.FlipCandidate{
			ItemID:    id,
			Kind:      models.QuoteKindAuction,
			SourceKey: s.key,
			EdgeRatio: flip.AuctionEdge(&q),
			Auction:   &q,
		})
	}
	return out
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
