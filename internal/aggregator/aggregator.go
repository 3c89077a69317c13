package aggregator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finwatch/finwatch/internal/finnhub"
)

// Gateway is the slice of the market-data client the aggregator needs.
type Gateway interface {
	Quote(ctx context.Context, symbol string) (*finnhub.Quote, error)
	CompanyProfile(ctx context.Context, symbol string) (*finnhub.CompanyProfile, error)
	CompanyNews(ctx context.Context, symbol, from, to string) ([]finnhub.NewsItem, error)
	SymbolSearch(ctx context.Context, query string) (*finnhub.SearchResult, error)
}

// StockDetail is the combined quote + profile record for a selected symbol.
// It is recomputed on every selection or refresh and never persisted.
type StockDetail struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Logo     string `json:"logo"`
	Industry string `json:"industry"`
	Country  string `json:"country"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	IPO      string `json:"ipo"`

	// MarketCap is in millions, as reported by the provider.
	MarketCap          float64 `json:"market_cap"`
	MarketCapFormatted string  `json:"market_cap_formatted"`

	Current       float64 `json:"current"`
	PercentChange float64 `json:"percent_change"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PrevClose     float64 `json:"prev_close"`

	// Degraded marks a placeholder produced after a failed load.
	Degraded bool `json:"degraded"`
}

// Entry is one watchlist row. PriceKnown is false on a degraded row, which
// renders as "N/A" instead of a number.
type Entry struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	PriceKnown    bool    `json:"price_known"`
	ChangePercent float64 `json:"change_percent"`
	Logo          string  `json:"logo"`
	Selected      bool    `json:"selected"`
}

// Suggestion is a symbol-search candidate offered while typing.
type Suggestion struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

// NoDataError reports a structurally valid provider response that carries
// no usable quote (absent or zero current price).
type NoDataError struct {
	Symbol string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data found for %s", e.Symbol)
}

// newsLimit caps how many articles a selection shows.
const newsLimit = 10

// suggestionLimit caps symbol-search suggestions.
const suggestionLimit = 5

// suggestionTypes is the whitelist of provider security types surfaced as
// suggestions.
var suggestionTypes = map[string]bool{
	"Common Stock": true,
	"ADR":          true,
	"REIT":         true,
}

// Aggregator stitches provider responses into display-ready records.
type Aggregator struct {
	gw Gateway
}

func New(gw Gateway) *Aggregator {
	return &Aggregator{gw: gw}
}

// LoadSymbol fetches quote then profile sequentially and merges them into a
// StockDetail. A quote with a zero current price yields NoDataError; callers
// substitute Placeholder rather than propagating the failure.
func (a *Aggregator) LoadSymbol(ctx context.Context, symbol string) (*StockDetail, error) {
	quote, err := a.gw.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("loading quote for %s: %w", symbol, err)
	}
	if quote.Current == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	profile, err := a.gw.CompanyProfile(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("loading profile for %s: %w", symbol, err)
	}

	return &StockDetail{
		Symbol:             symbol,
		Name:               profile.Name,
		Ticker:             profile.Ticker,
		Logo:               profile.Logo,
		Industry:           profile.Industry,
		Country:            profile.Country,
		Exchange:           profile.Exchange,
		Currency:           profile.Currency,
		IPO:                profile.IPO,
		MarketCap:          profile.MarketCap,
		MarketCapFormatted: FormatMarketCap(profile.MarketCap),
		Current:            quote.Current,
		PercentChange:      quote.PercentChange,
		High:               quote.High,
		Low:                quote.Low,
		Open:               quote.Open,
		PrevClose:          quote.PrevClose,
	}, nil
}

// Placeholder is the degraded record shown when a symbol's data could not
// be loaded: the row stays visible with an unavailable price.
func Placeholder(symbol string) *StockDetail {
	return &StockDetail{
		Symbol:   symbol,
		Name:     symbol,
		Degraded: true,
	}
}

// LoadEntry builds one watchlist row. Any failure degrades to an "N/A" row
// instead of returning an error, so one bad symbol never aborts the list.
func (a *Aggregator) LoadEntry(ctx context.Context, symbol string) Entry {
	quote, err := a.gw.Quote(ctx, symbol)
	if err != nil {
		slog.Error("Failed to load quote for watchlist row", "symbol", symbol, "error", err)
		return Entry{Symbol: symbol}
	}
	if quote.Current == 0 {
		slog.Warn("No quote data for watchlist row", "symbol", symbol)
		return Entry{Symbol: symbol}
	}

	entry := Entry{
		Symbol:        symbol,
		Price:         quote.Current,
		PriceKnown:    true,
		ChangePercent: quote.PercentChange,
	}
	profile, err := a.gw.CompanyProfile(ctx, symbol)
	if err != nil {
		slog.Error("Failed to load profile for watchlist row", "symbol", symbol, "error", err)
		return entry
	}
	entry.Logo = profile.Logo
	return entry
}

// LoadNews returns the first 10 articles for symbol in provider order.
// News is best-effort: failures come back as an empty slice.
func (a *Aggregator) LoadNews(ctx context.Context, symbol, from, to string) []finnhub.NewsItem {
	items, err := a.gw.CompanyNews(ctx, symbol, from, to)
	if err != nil {
		slog.Warn("Failed to load company news", "symbol", symbol, "error", err)
		return nil
	}
	if len(items) > newsLimit {
		items = items[:newsLimit]
	}
	return items
}

// RefreshQuote re-fetches only the quote and overlays its fields onto the
// existing detail, leaving profile fields untouched. Unlike LoadSymbol,
// failures here are returned to the caller; no placeholder is substituted.
func (a *Aggregator) RefreshQuote(ctx context.Context, detail *StockDetail) error {
	quote, err := a.gw.Quote(ctx, detail.Symbol)
	if err != nil {
		return fmt.Errorf("refreshing quote for %s: %w", detail.Symbol, err)
	}
	if quote.Current == 0 {
		return &NoDataError{Symbol: detail.Symbol}
	}

	detail.Current = quote.Current
	detail.PercentChange = quote.PercentChange
	detail.High = quote.High
	detail.Low = quote.Low
	detail.Open = quote.Open
	detail.PrevClose = quote.PrevClose
	return nil
}

// Suggest searches for symbols matching query, filtered to common stock
// types and capped to 5, preserving provider order.
func (a *Aggregator) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	result, err := a.gw.SymbolSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching symbols for %q: %w", query, err)
	}

	suggestions := make([]Suggestion, 0, suggestionLimit)
	for _, entry := range result.Result {
		if !suggestionTypes[entry.Type] {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Symbol:      entry.Symbol,
			Description: entry.Description,
		})
		if len(suggestions) == suggestionLimit {
			break
		}
	}
	return suggestions, nil
}
