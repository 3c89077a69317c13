package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Request kinds accepted by Raw. These are the values the market-data
// endpoint dispatches on.
const (
	KindQuote   = "quote"
	KindProfile = "companyProfile"
	KindNews    = "companyNews"
	KindSearch  = "symbolSearch"
)

// Client talks to the Finnhub REST API. It performs no caching, retries, or
// rate limiting; every call is a single attempt.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Finnhub client. baseURL defaults to the public API
// when empty.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://finnhub.io/api/v1"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Quote fetches current price statistics for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if symbol == "" {
		return nil, badRequestf("symbol is required for quote")
	}
	var q Quote
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// CompanyProfile fetches company metadata for a symbol.
func (c *Client) CompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error) {
	if symbol == "" {
		return nil, badRequestf("symbol is required for companyProfile")
	}
	var p CompanyProfile
	if err := c.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CompanyNews fetches articles for a symbol between from and to, both
// formatted YYYY-MM-DD. The provider's ordering is preserved and is not
// guaranteed chronological.
func (c *Client) CompanyNews(ctx context.Context, symbol, from, to string) ([]NewsItem, error) {
	if symbol == "" || from == "" || to == "" {
		return nil, badRequestf("symbol, from, and to are required for companyNews")
	}
	var items []NewsItem
	params := url.Values{"symbol": {symbol}, "from": {from}, "to": {to}}
	if err := c.get(ctx, "/company-news", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SymbolSearch looks up candidate symbols for a free-text query.
func (c *Client) SymbolSearch(ctx context.Context, query string) (*SearchResult, error) {
	if query == "" {
		return nil, badRequestf("query is required for symbolSearch")
	}
	var r SearchResult
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Raw dispatches a request by kind and returns the provider's JSON payload
// untouched. It validates required parameters the same way the typed
// methods do.
func (c *Client) Raw(ctx context.Context, kind string, params map[string]string) (json.RawMessage, error) {
	var (
		path  string
		query = url.Values{}
	)
	switch kind {
	case KindQuote:
		if params["symbol"] == "" {
			return nil, badRequestf("symbol is required for quote")
		}
		path = "/quote"
		query.Set("symbol", params["symbol"])
	case KindProfile:
		if params["symbol"] == "" {
			return nil, badRequestf("symbol is required for companyProfile")
		}
		path = "/stock/profile2"
		query.Set("symbol", params["symbol"])
	case KindNews:
		if params["symbol"] == "" || params["from"] == "" || params["to"] == "" {
			return nil, badRequestf("symbol, from, and to are required for companyNews")
		}
		path = "/company-news"
		query.Set("symbol", params["symbol"])
		query.Set("from", params["from"])
		query.Set("to", params["to"])
	case KindSearch:
		if params["query"] == "" {
			return nil, badRequestf("query is required for symbolSearch")
		}
		path = "/search"
		query.Set("q", params["query"])
	default:
		return nil, badRequestf("unsupported request type %q", kind)
	}

	var raw json.RawMessage
	if err := c.get(ctx, path, query, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("token", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("finnhub: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Status: resp.StatusCode, Err: errors.New(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
