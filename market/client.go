// Package market wraps read-only market-data and news lookups against
// a CoinGecko-style public API. Lookups are best effort; failures are
// returned to the caller and reported inline to the user.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public CoinGecko v3 API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const lookupTimeout = 10 * time.Second

// ids maps common ticker symbols to API asset identifiers. Unknown
// symbols are passed through lowercased.
var ids = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"sol":  "solana",
	"ada":  "cardano",
	"xrp":  "ripple",
	"doge": "dogecoin",
	"dot":  "polkadot",
	"ltc":  "litecoin",
}

// Quote is a spot price with its 24h change.
type Quote struct {
	Symbol    string
	USD       float64
	Change24h float64
}

// Format renders the quote as plain reply text.
func (q Quote) Format() string {
	return fmt.Sprintf("%s: $%.2f (%+.2f%% 24h)", strings.ToUpper(q.Symbol), q.USD, q.Change24h)
}

// Headline is one news item.
type Headline struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: lookupTimeout},
	}
}

// Price fetches the current USD price for a ticker symbol.
func (c *Client) Price(ctx context.Context, symbol string) (Quote, error) {
	id := assetID(symbol)
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	var out map[string]struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
	}
	if err := c.get(ctx, "/simple/price?"+q.Encode(), &out); err != nil {
		return Quote{}, err
	}
	entry, ok := out[id]
	if !ok {
		return Quote{}, fmt.Errorf("no price data for %q", symbol)
	}
	return Quote{Symbol: symbol, USD: entry.USD, Change24h: entry.Change24h}, nil
}

// Series fetches daily closing prices for the past days.
func (c *Client) Series(ctx context.Context, symbol string, days int) ([]float64, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("interval", "daily")

	var out struct {
		Prices [][2]float64 `json:"prices"`
	}
	path := "/coins/" + url.PathEscape(assetID(symbol)) + "/market_chart?" + q.Encode()
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	if len(out.Prices) == 0 {
		return nil, fmt.Errorf("no series data for %q", symbol)
	}
	prices := make([]float64, len(out.Prices))
	for i, p := range out.Prices {
		prices[i] = p[1]
	}
	return prices, nil
}

// News fetches current market headlines.
func (c *Client) News(ctx context.Context) ([]Headline, error) {
	var out struct {
		Data []Headline `json:"data"`
	}
	if err := c.get(ctx, "/news", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("market lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("market lookup: HTTP %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read market response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode market response: %w", err)
	}
	return nil
}

func assetID(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if id, ok := ids[s]; ok {
		return id
	}
	return s
}
