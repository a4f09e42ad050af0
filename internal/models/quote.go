package models

type QuoteKind string

const (
	QuoteKindBazaar  QuoteKind = "bazaar"
	QuoteKindAuction QuoteKind = "auction"
)

// BazaarQuote is the venue's instant-buy / instant-sell price pair for one commodity.
type BazaarQuote struct {
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
}

// AuctionQuote aggregates recent BIN listings of one item type.
type AuctionQuote struct {
	LowestStartingBid    int64   `json:"lowest_starting_bid"`
	AverageObservedPrice float64 `json:"average_observed_price"`
	SampleSize           int     `json:"sample_size"`
}

// UnifiedFlipInputSnapshot is built once per poll cycle and never mutated afterwards.
// The maps are private copies; accessors hand out copies as well.
type UnifiedFlipInputSnapshot struct {
	bazaar  map[string]BazaarQuote
	auction map[string]AuctionQuote
}

func NewSnapshot(bazaar map[string]BazaarQuote, auction map[string]AuctionQuote) *UnifiedFlipInputSnapshot {
	s := &UnifiedFlipInputSnapshot{
		bazaar:  make(map[string]BazaarQuote, len(bazaar)),
		auction: make(map[string]AuctionQuote, len(auction)),
	}
	for k, v := range bazaar {
		s.bazaar[k] = v
	}
	for k, v := range auction {
		s.auction[k] = v
	}
	return s
}

func (s *UnifiedFlipInputSnapshot) BazaarQuotes() map[string]BazaarQuote {
	if s == nil {
		return map[string]BazaarQuote{}
	}
	out := make(map[string]BazaarQuote, len(s.bazaar))
	for k, v := range s.bazaar {
		out[k] = v
	}
	return out
}

func (s *UnifiedFlipInputSnapshot) AuctionQuotes() map[string]AuctionQuote {
	if s == nil {
		return map[string]AuctionQuote{}
	}
	out := make(map[string]AuctionQuote, len(s.auction))
	for k, v := range s.auction {
		out[k] = v
	}
	return out
}

func (s *UnifiedFlipInputSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bazaar) + len(s.auction)
}

// FlipCandidate is a quote that cleared the eligibility bar in a cycle where its
// sub-source changed. Exactly one of Bazaar / Auction is set, matching Kind.
type FlipCandidate struct {
	ItemID    string        `json:"item_id"`
	Kind      QuoteKind     `json:"kind"`
	SourceKey string        `json:"source_key"`
	EdgeRatio float64       `json:"edge_ratio"`
	Bazaar    *BazaarQuote  `json:"bazaar,omitempty"`
	Auction   *AuctionQuote `json:"auction,omitempty"`
}
