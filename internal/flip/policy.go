// Package flip decides whether a single quote clears the profitability bar.
// Everything here is pure: no state, no I/O.
package flip

import "skyflip/internal/models"

const (
	// BazaarMinEdge is the sell/buy ratio a bazaar spread must reach. Bazaar fills are
	// near-guaranteed, so a thin edge is enough.
	BazaarMinEdge = 1.015
	// AuctionMinEdge is the average/lowest-bid ratio an auction item must reach.
	AuctionMinEdge = 1.05
	// AuctionMinSamples is the fewest listings an auction average may be built from.
	AuctionMinSamples = 3
)

func IsBazaarFlipEligible(q *models.BazaarQuote) bool {
	if q == nil || q.BuyPrice <= 0 || q.SellPrice <= 0 {
		return false
	}
	return q.SellPrice/q.BuyPrice >= BazaarMinEdge
}

func IsAuctionFlipEligible(q *models.AuctionQuote) bool {
	if q == nil || q.LowestStartingBid <= 0 || q.AverageObservedPrice <= 0 || q.SampleSize < AuctionMinSamples {
		return false
	}
	return q.AverageObservedPrice/float64(q.LowestStartingBid) >= AuctionMinEdge
}

// BazaarEdge returns sell/buy, or 0 when the quote cannot be priced.
func BazaarEdge(q *models.BazaarQuote) float64 {
	if q == nil || q.BuyPrice <= 0 || q.SellPrice <= 0 {
		return 0
	}
	return q.SellPrice / q.BuyPrice
}

// AuctionEdge returns average/lowest bid, or 0 when the quote cannot be priced.
func AuctionEdge(q *models.AuctionQuote) float64 {
	if q == nil || q.LowestStartingBid <= 0 || q.AverageObservedPrice <= 0 {
		return 0
	}
	return q.AverageObservedPrice / float64(q.LowestStartingBid)
}
