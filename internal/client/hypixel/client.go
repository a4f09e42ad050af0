package hypixel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultHost = "https://api.hypixel.net"

type Client struct {
	host   string
	apiKey string
	http   *resty.Client
}

// ErrPageNotFound is returned for an auctions page past the venue's current last page.
var ErrPageNotFound = errors.New("auctions page not found")

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(host, apiKey string, timeout time.Duration) *Client {
	if host == "" {
		host = DefaultHost
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := resty.New()
	rc.SetTimeout(timeout)
	rc.SetHeader("Accept", "application/json")
	return &Client{
		host:   strings.TrimRight(host, "/"),
		apiKey: strings.TrimSpace(apiKey),
		http:   rc,
	}
}

func (c *Client) GetBazaar(ctx context.Context) (*BazaarResponse, error) {
	var out BazaarResponse
	if err := c.get(ctx, "/v2/skyblock/bazaar", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("bazaar: venue reported failure: %s", out.Cause)
	}
	return &out, nil
}

// GetAuctions returns one page of active auctions. Pages are numbered from 0.
func (c *Client) GetAuctions(ctx context.Context, page int) (*AuctionsResponse, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", page))
	var out AuctionsResponse
	if err := c.get(ctx, "/v2/skyblock/auctions", q, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("auctions page %d: %w: %w", page, ErrPageNotFound, err)
		}
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("auctions page %d: venue reported failure: %s", page, out.Cause)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req := c.http.R().SetContext(ctx)
	if c.apiKey != "" {
		req.SetHeader("API-Key", c.apiKey)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(c.host + path)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return &APIError{Status: resp.StatusCode(), Body: truncate(string(resp.Body()), 512)}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
