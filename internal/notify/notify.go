// Package notify pushes flip alerts to external channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"skyflip/internal/models"
)

const EventFlipCandidates = "flip_candidates"

type Alert struct {
	CycleID    string
	Candidates []models.FlipCandidate
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

type httpError struct {
	Channel    string
	StatusCode int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s http status %d", e.Channel, e.StatusCode)
}

func newHTTP(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("Content-Type", "application/json")
	return c
}

func checkStatus(channel string, resp *resty.Response) error {
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return &httpError{Channel: channel, StatusCode: resp.StatusCode()}
	}
	return nil
}

// FormatMessage renders candidates as one line each, best edge first as given.
func FormatMessage(alert Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d flip candidate(s), cycle %s\n", len(alert.Candidates), alert.CycleID)
	for _, c := range alert.Candidates {
		switch {
		case c.Bazaar != nil:
			fmt.Fprintf(&b, "- [bazaar] %s buy %.1f sell %.1f edge %.3f\n", c.ItemID, c.Bazaar.BuyPrice, c.Bazaar.SellPrice, c.EdgeRatio)
		case c.Auction != nil:
			fmt.Fprintf(&b, "- [auction] %s lowest %d avg %.1f n=%d edge %.3f\n", c.ItemID, c.Auction.LowestStartingBid, c.Auction.AverageObservedPrice, c.Auction.SampleSize, c.EdgeRatio)
		default:
			fmt.Fprintf(&b, "- [%s] %s edge %.3f\n", c.Kind, c.ItemID, c.EdgeRatio)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
