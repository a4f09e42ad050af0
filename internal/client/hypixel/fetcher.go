package hypixel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skyflip/internal/models"
)

// NameResolver maps an auction listing name to an item id.
type NameResolver interface {
	Resolve(displayName string) string
}

// Fetcher builds a UnifiedFlipInputSnapshot from the bazaar endpoint and the active
// auction pages. It does not retry; a single failed request fails the whole fetch.
type Fetcher struct {
	Client   *Client
	Resolver NameResolver
	Logger   *zap.Logger

	MaxAuctionPages int
	PageConcurrency int
}

func (f *Fetcher) FetchSnapshot(ctx context.Context) (*models.UnifiedFlipInputSnapshot, error) {
	if f == nil || f.Client == nil {
		return nil, fmt.Errorf("hypixel fetcher not configured")
	}
	var (
		bazaar  map[string]models.BazaarQuote
		auction map[string]models.AuctionQuote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := f.Client.GetBazaar(gctx)
		if err != nil {
			return err
		}
		bazaar = BazaarQuotes(resp)
		return nil
	})
	g.Go(func() error {
		pages, err := f.fetchAuctionPages(gctx)
		if err != nil {
			return err
		}
		auction = AggregateAuctions(pages, f.Resolver)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if f.Logger != nil {
		f.Logger.Debug("venue snapshot fetched",
			zap.Int("bazaar", len(bazaar)),
			zap.Int("auction", len(auction)),
		)
	}
	return models.NewSnapshot(bazaar, auction), nil
}

// fetchAuctionPages reads page 0 to learn the page count, then the rest concurrently.
// Pages come back in page order whatever order the requests finish in. The auction set
// can shrink between requests; a tail page that no longer exists is treated as empty.
func (f *Fetcher) fetchAuctionPages(ctx context.Context) ([]*AuctionsResponse, error) {
	first, err := f.Client.GetAuctions(ctx, 0)
	if err != nil {
		return nil, err
	}
	total := first.TotalPages
	if maxPages := f.MaxAuctionPages; maxPages > 0 && total > maxPages {
		total = maxPages
	}
	if total < 1 {
		total = 1
	}
	pages := make([]*AuctionsResponse, total)
	pages[0] = first

	limit := f.PageConcurrency
	if limit <= 0 {
		limit = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 1; i < total; i++ {
		page := i
		g.Go(func() error {
			resp, err := f.Client.GetAuctions(gctx, page)
			if errors.Is(err, ErrPageNotFound) {
				if f.Logger != nil {
					f.Logger.Debug("auction page gone", zap.Int("page", page), zap.Int("total", total))
				}
				return nil
			}
			if err != nil {
				return err
			}
			pages[page] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func BazaarQuotes(resp *BazaarResponse) map[string]models.BazaarQuote {
	out := map[string]models.BazaarQuote{}
	if resp == nil {
		return out
	}
	for key, p := range resp.Products {
		id := strings.TrimSpace(p.ProductID)
		if id == "" {
			id = strings.TrimSpace(key)
		}
		if id == "" {
			continue
		}
		out[id] = models.BazaarQuote{
			BuyPrice:  p.QuickStatus.BuyPrice,
			SellPrice: p.QuickStatus.SellPrice,
		}
	}
	return out
}

// AggregateAuctions folds the BIN listings of every page into one quote per item:
// the cheapest starting bid, the mean starting bid, and the listing count.
// Listings are summed in page then listing order so the mean is reproducible.
func AggregateAuctions(pages []*AuctionsResponse, resolver NameResolver) map[string]models.AuctionQuote {
	type agg struct {
		min   int64
		sum   float64
		count int
	}
	acc := map[string]*agg{}
	for _, page := range pages {
		if page == nil {
			continue
		}
		for _, a := range page.Auctions {
			if !a.BIN || a.Claimed || a.StartingBid <= 0 {
				continue
			}
			id := resolveItem(resolver, a.ItemName)
			if id == "" {
				continue
			}
			cur, ok := acc[id]
			if !ok {
				cur = &agg{min: a.StartingBid}
				acc[id] = cur
			}
			if a.StartingBid < cur.min {
				cur.min = a.StartingBid
			}
			cur.sum += float64(a.StartingBid)
			cur.count++
		}
	}
	out := make(map[string]models.AuctionQuote, len(acc))
	for id, a := range acc {
		out[id] = models.AuctionQuote{
			LowestStartingBid:    a.min,
			AverageObservedPrice: a.sum / float64(a.count),
			SampleSize:           a.count,
		}
	}
	return out
}

func resolveItem(resolver NameResolver, name string) string {
	if resolver != nil {
		return resolver.Resolve(name)
	}
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}
