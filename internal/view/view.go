package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/finwatch/finwatch/internal/aggregator"
	"github.com/finwatch/finwatch/internal/finnhub"
	"github.com/finwatch/finwatch/internal/watchlist"
)

// Store is the slice of the watchlist persistence layer the view needs.
type Store interface {
	GetOrCreate(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, symbol string) ([]string, error)
	Remove(ctx context.Context, userID, symbol string) ([]string, error)
}

var (
	ErrEmptySymbol = errors.New("ticker symbol is required")
	ErrDuplicate   = errors.New("symbol is already in the watchlist")
	ErrNoSelection = errors.New("no symbol is selected")
)

// newsWindow is how far back the selected symbol's news reaches.
const newsWindow = 7 * 24 * time.Hour

// Watchlist is one user's display state: the sorted entry list, the
// selected symbol's detail and news. All mutations re-sort the entries by
// symbol ascending and are serialized by the mutex.
type Watchlist struct {
	mu     sync.Mutex
	userID string
	store  Store
	agg    *aggregator.Aggregator
	now    func() time.Time

	entries  []aggregator.Entry
	selected string
	detail   *aggregator.StockDetail
	news     []finnhub.NewsItem
}

// Snapshot is the JSON shape handed to clients.
type Snapshot struct {
	Entries  []aggregator.Entry      `json:"entries"`
	Selected string                  `json:"selected,omitempty"`
	Detail   *aggregator.StockDetail `json:"detail,omitempty"`
	News     []finnhub.NewsItem      `json:"news"`
}

func New(store Store, agg *aggregator.Aggregator, userID string) *Watchlist {
	return &Watchlist{
		userID: userID,
		store:  store,
		agg:    agg,
		now:    time.Now,
	}
}

// Load resolves the persisted symbol set, fetches each row sequentially,
// and auto-selects the first entry in sorted order.
func (w *Watchlist) Load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	symbols, err := w.store.GetOrCreate(ctx, w.userID)
	if err != nil {
		return fmt.Errorf("loading watchlist: %w", err)
	}

	w.entries = w.entries[:0]
	for _, symbol := range symbols {
		w.entries = append(w.entries, w.agg.LoadEntry(ctx, symbol))
	}
	w.sortEntries()

	if len(w.entries) > 0 {
		w.selectLocked(ctx, w.entries[0].Symbol)
	} else {
		w.clearSelectionLocked()
	}
	return nil
}

// Select switches the detail view to symbol. Selecting the current symbol
// is a no-op. A failed detail load shows as a degraded (placeholder)
// detail, not an error.
func (w *Watchlist) Select(ctx context.Context, symbol string) {
	symbol = watchlist.Normalize(symbol)
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.selected == symbol {
		return
	}
	w.selectLocked(ctx, symbol)
}

// Add validates and loads the symbol, persists it, and selects it. The
// store is only written after the symbol proves to have usable data.
func (w *Watchlist) Add(ctx context.Context, symbol string) error {
	symbol = watchlist.Normalize(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.entries {
		if e.Symbol == symbol {
			return ErrDuplicate
		}
	}

	detail, err := w.agg.LoadSymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("adding %s: %w", symbol, err)
	}

	if _, err := w.store.Add(ctx, w.userID, symbol); err != nil {
		return err
	}

	w.entries = append(w.entries, aggregator.Entry{
		Symbol:        symbol,
		Price:         detail.Current,
		PriceKnown:    true,
		ChangePercent: detail.PercentChange,
		Logo:          detail.Logo,
	})
	w.applyDetailLocked(ctx, symbol, detail)
	return nil
}

// Remove drops the symbol from the list and the store. If it was selected,
// the next remaining entry in sorted order becomes selected; with nothing
// left the selection clears.
func (w *Watchlist) Remove(ctx context.Context, symbol string) error {
	symbol = watchlist.Normalize(symbol)
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.store.Remove(ctx, w.userID, symbol); err != nil {
		return err
	}

	kept := w.entries[:0]
	for _, e := range w.entries {
		if e.Symbol != symbol {
			kept = append(kept, e)
		}
	}
	w.entries = kept
	w.sortEntries()

	if w.selected == symbol {
		if len(w.entries) > 0 {
			w.selectLocked(ctx, w.entries[0].Symbol)
		} else {
			w.clearSelectionLocked()
		}
	}
	return nil
}

// Refresh re-fetches the selected symbol's quote and overlays it onto the
// detail and the matching entry. Failures surface to the caller.
func (w *Watchlist) Refresh(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.detail == nil || w.detail.Degraded {
		return ErrNoSelection
	}
	if err := w.agg.RefreshQuote(ctx, w.detail); err != nil {
		return err
	}
	for i := range w.entries {
		if w.entries[i].Symbol == w.detail.Symbol {
			w.entries[i].Price = w.detail.Current
			w.entries[i].PriceKnown = true
			w.entries[i].ChangePercent = w.detail.PercentChange
		}
	}
	w.sortEntries()
	return nil
}

// Snapshot returns a copy of the current display state.
func (w *Watchlist) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries := make([]aggregator.Entry, len(w.entries))
	copy(entries, w.entries)
	news := make([]finnhub.NewsItem, len(w.news))
	copy(news, w.news)

	var detail *aggregator.StockDetail
	if w.detail != nil {
		d := *w.detail
		detail = &d
	}
	return Snapshot{
		Entries:  entries,
		Selected: w.selected,
		Detail:   detail,
		News:     news,
	}
}

// Symbols returns the current symbols in display order.
func (w *Watchlist) Symbols() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.Symbol
	}
	return out
}

func (w *Watchlist) selectLocked(ctx context.Context, symbol string) {
	detail, err := w.agg.LoadSymbol(ctx, symbol)
	if err != nil {
		slog.Error("Failed to load selected symbol", "symbol", symbol, "user_id", w.userID, "error", err)
		detail = aggregator.Placeholder(symbol)
	}
	w.applyDetailLocked(ctx, symbol, detail)
}

func (w *Watchlist) applyDetailLocked(ctx context.Context, symbol string, detail *aggregator.StockDetail) {
	w.detail = detail
	w.selected = symbol

	if detail.Degraded {
		w.news = nil
	} else {
		to := w.now().UTC()
		from := to.Add(-newsWindow)
		w.news = w.agg.LoadNews(ctx, symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	for i := range w.entries {
		w.entries[i].Selected = w.entries[i].Symbol == symbol
	}
	w.sortEntries()
}

func (w *Watchlist) clearSelectionLocked() {
	w.selected = ""
	w.detail = nil
	w.news = nil
	for i := range w.entries {
		w.entries[i].Selected = false
	}
	w.sortEntries()
}

func (w *Watchlist) sortEntries() {
	sort.Slice(w.entries, func(i, j int) bool {
		return w.entries[i].Symbol < w.entries[j].Symbol
	})
}
